// Package protocol implements the wire frames exchanged with the chat
// backend over a streaming connection.
//
// Inbound frames are JSON objects discriminated by a "type" field:
//   - chat_history: full replacement of the message list
//   - chat_message: assistant content delta
//   - reasoning: assistant reasoning delta
//   - image: image reference for the current assistant turn
//   - session_created: backend-assigned conversation id
//   - stream_end: the current assistant turn is complete
//   - error: backend-reported failure
//
// The single outbound frame is the full transcript so far, encoded as a
// bare JSON array of {role, content} objects.
//
// Decoding is stateless. A payload that cannot be decoded yields an error
// wrapping ErrMalformedFrame; callers drop it and carry on.
package protocol
