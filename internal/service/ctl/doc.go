// Package ctl implements the alarm-ctl operations: reading the status,
// changing the arming mode, managing sensors, sending camera frames and
// following the event stream.
package ctl
