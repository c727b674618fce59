// Package memruntime is an in-memory logging runtime used to exercise the
// lifecycle package. It reports configuration progress and problems as status
// messages, like a real runtime reporting on its internal status logger.
package memruntime
