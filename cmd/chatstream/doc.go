// Package main is the terminal chat client.
//
// It streams assistant replies over a WebSocket per conversation and uses
// the REST API for the conversation list, history priming and model
// selection.
//
// Configuration:
//   - Environment variables, optionally from a .env file
//   - A YAML or TOML file given with --config
//   - CLI flags (override both)
//
// Usage:
//
//	./chatstream --api-url http://localhost:8000/api --ws-url ws://localhost:8000/ws/chat
//
// Commands typed at the prompt:
//
//	/new            start a new conversation
//	/list           list conversations
//	/open <id|#n>   open a conversation by id or list position
//	/models         list models
//	/model <id>     switch the backend model
//	/help           show commands
//	/quit           exit
//
// Any other line is sent as the next user turn.
package main
