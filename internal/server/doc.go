// Package server implements the core HTTP and WebSocket functionality of
// the lobby chat service.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, session handling, routing, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package server
