// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a named child logger (controller, connection, api,
// devbackend) and attach structured fields such as conn_id and session_id
// so one connection's lifecycle can be followed across goroutines.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.Component("controller")
//	log.Info("connection opened", zap.String("conn_id", connID))
package logging
