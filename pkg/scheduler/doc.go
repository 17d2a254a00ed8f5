// Package scheduler serializes async work: submitted tasks run strictly one
// at a time, in submission order, each returning a Future.
//
// The future's C() channel receives exactly one Result. The task's context
// is derived from the caller's, so abandoning the request cancels the task —
// immediately when it is still queued, cooperatively when it is running.
// Panics are recovered and reported as errors, so a misbehaving task never
// takes the scheduler down.
//
// The checkout service relies on the one-at-a-time guarantee to keep at most
// one browser page in flight.
//
// Close cancels queued and running tasks, waits for the running one, and is
// idempotent.
package scheduler
