// Package config defines the settings used by the alarm binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Validate fills defaults for storage, classifier and policy sections so the
// rest of the code can rely on every field being set.
package config
