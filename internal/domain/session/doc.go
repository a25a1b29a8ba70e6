// Package session drives the active conversation.
//
// The Controller is an explicit state machine run by a single event loop
// goroutine. It receives "conversation selected" and "text submitted"
// commands from the presentation layer, owns at most one live
// ws.Connection, and reports assembled message lists back through an
// Observer.
//
// States:
//
//	Idle        no live connection
//	Connecting  live connection dialing (or writing its bootstrap transcript)
//	Open        live connection streaming
//	Closing     live connection ended; the conversation is inert until the
//	            next selection
//
// Selecting a conversation that already has an open or connecting
// connection reuses it. Selecting another closes the live connection first.
// Submitting with no active conversation opens a bootstrap connection that
// carries the first transcript; when the backend assigns an id the same
// connection stays open and is rebound to it.
//
// Example Usage:
//
//	ctrl := session.NewController(session.Options{
//		BaseURL:  cfg.Stream.BaseURL,
//		History:  apiClient,
//		Observer: renderer,
//	})
//	go ctrl.Run(ctx)
//	ctrl.SelectConversation(42)
//	ctrl.Submit("hello")
package session
