// Package logtest stands up an isolated logging runtime per test and captures
// the status messages the runtime emits while the test runs.
//
// The plugin reads the "logtest" configuration section on Init and sets up the
// session: status messages at or above console_level are printed through the
// plugin logger, unless disable_console_status_listener replaces the console
// listener for the whole session.
//
// [Plugin.Suite] binds a scope to a *testing.T and sets up the runtime
// declared by a [lifecycle.Source]. [Suite.Run] starts a unit in a nested
// scope. Each unit gets an [Env] that exposes its runtime, the status messages
// emitted under its scope, test properties and file cleanup. Everything a
// scope acquired is released when the test completes, even if it failed. The
// status messages of a failed unit are printed.
//
// Harnesses that do not use the testing package drive the same lifecycle
// through BeforeAll, BeforeEach, AfterEach and AfterAll.
package logtest
