// Package logger provides a small factory over log/slog plus typed
// attribute helpers shared across the engine's components, so log records
// use consistent keys (error, component, notification_id, topic,
// generation) regardless of which component emitted them.
package logger
