// Package state implements persistence for sensors, the arming status and
// the alarm status.
//
// Repository is the contract the security engine depends on. Three backends
// are provided: MemoryRepository for tests and ephemeral runs, FileRepository
// storing a JSON snapshot on disk, and BadgerRepository on top of an embedded
// badger key-value store.
package state
