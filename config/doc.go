// Package config loads the logtest configuration from YAML and the
// environment.
//
// Environment variables with the LOGTEST_ prefix override file values. The
// first underscore separates the section from the field name:
//
//	LOGTEST_CONSOLE_LEVEL -> logtest.console_level
//	LOGTEST_SHUTDOWN_TIMEOUT -> logtest.shutdown_timeout
package config
