// Package mocklogger provides mock logging infrastructure for tests.
//
// It supplies [ZapLoggerMock], a Logger that produces named zap loggers backed
// by an in-memory observer. Tests use the returned observer.ObservedLogs to
// assert on log entries by level, message, or field.
package mocklogger
