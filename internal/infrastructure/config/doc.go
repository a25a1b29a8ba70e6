// Package config provides 12-factor configuration for the chat client and
// the development backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// A .env file in the working directory is read first when present. A YAML or
// TOML file can replace the environment entirely via LoadFile, and CLI flags
// override whichever source was used.
//
// Configuration Sections:
//   - API: REST collaborator base URL, timeout, client-side rate limit
//   - Stream: WebSocket base URL, handshake/write timeouts, read limit
//   - Logging: Log level, output format and destination
//   - Metrics: Optional Prometheus listener
//   - DevBackend: Local stand-in backend listener and scripted model
//   - RateLimit: Per-IP rate limiting on the development backend
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("streaming from %s\n", cfg.Stream.BaseURL)
//
// Environment Variables:
//   - CHAT_API_URL, CHAT_API_TIMEOUT, CHAT_API_RATE_LIMIT, CHAT_API_RETRIES
//   - CHAT_WS_URL, CHAT_HANDSHAKE_TIMEOUT, CHAT_WRITE_TIMEOUT, CHAT_READ_LIMIT, CHAT_WS_COMPRESSION
//   - LOG_LEVEL, LOG_DEV, LOG_OUTPUT, METRICS_ADDR
//   - DEV_HOST, DEV_PORT, DEV_MODEL, DEV_CHUNK_DELAY
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
