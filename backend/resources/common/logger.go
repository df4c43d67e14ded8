/*
 * backend/resources/common/logger.go
 *
 * Logger interface shared by services and session managers.
 */

package common

// Logger captures the logging operations needed by services.
type Logger interface {
	Debug(message string, source ...string)
	Info(message string, source ...string)
	Warn(message string, source ...string)
	Error(message string, source ...string)
}

// NoopLogger discards everything. Constructors fall back to it when no logger is supplied.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...string) {}
func (NoopLogger) Info(string, ...string)  {}
func (NoopLogger) Warn(string, ...string)  {}
func (NoopLogger) Error(string, ...string) {}
