// Package ws provides the client side of a streaming chat conversation.
//
// A Connection owns one WebSocket transport and the message assembler fed by
// it. It is bound either to an existing conversation id or to a pending
// bootstrap; a bootstrap connection writes the initial transcript as soon as
// the transport opens and learns its id from a session_created frame.
//
// Connections never reconnect. Every transport failure ends the connection
// with an EventClosed carrying a *TransportError.
//
// Frames are decoded on the connection's reader goroutine and posted to a
// sink in arrival order. The receiver applies them with Apply; once Close
// has returned, Apply is a no-op, so no late frame reaches the assembler.
//
//	conn := ws.Open(ctx, ws.Options{BaseURL: "ws://localhost:8000/ws/chat"},
//		ws.ExistingSession(42), func(ev ws.Event) { events <- ev })
//	defer conn.Close()
package ws
