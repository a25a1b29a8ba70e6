// Package middleware provides HTTP middleware for the development backend.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing so a browser frontend can talk to
//     the backend during development
//   - RateLimit: Per-IP token bucket rate limiting with idle client eviction
//   - RequestID: Echoes or assigns an X-Request-ID per request
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
