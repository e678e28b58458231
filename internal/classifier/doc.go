// Package classifier provides cat detectors for camera frames.
//
// The image analysis itself is out of scope: Random stands in for a model by
// drawing a pseudo random confidence, and Static always returns a fixed
// verdict. Both satisfy the security engine's Classifier contract.
package classifier
