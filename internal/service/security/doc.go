// Package security implements the alarm decision engine.
//
// Engine is the only writer of the alarm status. It reacts to sensor flag
// changes, classified camera frames and arming changes, persists every
// transition through the state Repository and fans events out to registered
// StatusListeners. The verdict of the last frame is kept in the engine, not in
// the repository, so arming home right after a cat was seen raises the alarm.
package security
