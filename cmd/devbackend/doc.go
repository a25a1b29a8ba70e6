// Package main runs the development chat backend.
//
// It serves the REST API and the WebSocket stream the client expects, with
// an in-memory conversation store and a scripted responder in place of a
// real model. Messages starting with "!error" produce a backend error turn.
//
// Usage:
//
//	./devbackend --port 8000 --model openai/gpt-5 --chunk-delay 50ms
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
