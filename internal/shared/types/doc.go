// Package types provides shared data structures for the chat client.
//
// These types are the vocabulary exchanged between the frame codec, the
// message assembler, the streaming connection, the session controller and
// the REST collaborator.
//
// Core Types:
//   - Message: One conversational turn (role, content, reasoning, images)
//   - Conversation: A chat session with its ordered messages
//   - SessionSummary: List entry returned by the sessions endpoint
//
// Model Catalog:
//   - ModelCatalog: Available models and the current selection
//   - ModelSelection: Result of selecting a model
//
// Example Usage:
//
//	msg := types.Message{Role: types.RoleUser, Content: "hello"}
//	conv := types.Conversation{Messages: []types.Message{msg}}
package types
