// Package server is a local development backend speaking the chat protocol.
//
// It keeps conversations in memory and answers every received transcript
// with a scripted stream, so the client can be exercised end to end without
// a model provider:
//
//   - reasoning models stream "reasoning" frames before the answer
//   - every model streams the answer word by word as "chat_message" frames
//   - image models attach an inline PNG as an "image" frame
//   - a turn ends with "stream_end"; a user turn starting with "!error"
//     produces an "error" frame first
//
// Routes:
//
//	GET  /                          liveness message
//	GET  /health                    health check
//	GET  /metrics                   Prometheus metrics
//	GET  /api/sessions              conversation list, newest first
//	GET  /api/sessions/:id          one conversation with messages
//	GET  /api/models                model catalog
//	POST /api/models/select/*id     switch the current model
//	GET  /ws/chat/:target           stream; target is an id or "new"
//
// Server Lifecycle:
//  1. New builds the router and middleware stack
//  2. Run listens until its context is cancelled
//  3. Shutdown drains in-flight HTTP requests
package server
