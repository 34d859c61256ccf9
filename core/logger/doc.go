// Package logger provides log/slog attribute helpers shared by the session
// engine and its storage integrations.
//
// Helpers return an empty slog.Attr for zero-value inputs, so call sites can
// pass errors and ids unconditionally:
//
//	log.Warn("cache invalidation failed", logger.Error(err), logger.CustomerID(id))
package logger
