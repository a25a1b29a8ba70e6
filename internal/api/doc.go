// Package api is the request/response collaborator of the chat backend.
//
// Client wraps resty with a retryablehttp connection pool, a token-bucket
// limiter and a circuit breaker. Responses are decoded with sonic. Non-2xx
// responses become *Error values carrying the backend's detail message;
// 4xx errors do not count against the breaker.
//
// Endpoints (relative to the API base URL):
//
//	GET  /sessions                  conversation list, newest first
//	GET  /sessions/{id}             one conversation with its messages
//	GET  /models                    model catalog and current model
//	POST /models/select/{model_id}  switch the current model
package api
