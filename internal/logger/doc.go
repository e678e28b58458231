// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - leveled helpers (Infof, ErrorKV, etc.) that log through the context.
//
// Services accept a context and extract the logger from it, so log lines
// carry the component name and request scoped fields.
package logger
