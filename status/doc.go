// Package status captures the diagnostic messages a logging runtime reports
// about itself (configuration problems, lifecycle events).
//
// Messages are published on a process-wide [Bus]. Each [Message] is tagged
// with the scope that was anchored on the emitting context, so a [Collector]
// attached to a test scope only keeps what that test produced, no matter which
// goroutine emitted it. Collectors are detached automatically when their scope
// exits.
package status
