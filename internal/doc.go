// Package internal groups packages that are private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: orchestration for every Engine operation
//   - config: sessiond environment configuration
//   - httpapi: sessiond HTTP surface
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
