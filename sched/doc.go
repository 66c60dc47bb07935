// Package sched implements ThreadContext, the single-threaded cooperative
// scheduling primitive of spec.md §4.7 / §5: a serial executor that pins
// one logical actor (a server role, a log instance, a proxy) to a single
// goroutine, in submission order, plus one-shot and periodic task
// scheduling.
//
// The run loop's shape (jobs queued into a slice guarded by a mutex, a
// single worker goroutine draining them in order, Close refusing new
// jobs while the worker finishes those already queued) follows the teacher's own
// FIFO-queue-plus-worker-goroutine idiom used throughout its actor-style
// types. This package generalizes that one-shot job queue with
// io.atomix's ThreadContext.schedule(delay, callback) and
// schedule(initialDelay, interval, callback) (original_source
// io/atomix/util/concurrent/ThreadContext.java), and adds Future, since
// spec §5 requires cross-context calls to return asynchronous futures
// completed on the caller's executor.
package sched
