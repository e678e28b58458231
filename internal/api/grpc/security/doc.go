// Package security implements the gRPC transport for the security service.
//
// The service descriptor is declared by hand and messages are plain Go structs
// carried by a JSON codec registered under the "json" content subtype. The
// package also holds the typed client used by the command line tools.
package security
