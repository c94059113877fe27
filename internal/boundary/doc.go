// Package boundary exposes stores to foreign callers through integer handles.
//
// Every operation returns its value together with an *ExternError that is nil
// on success. An ExternError hands out its message exactly once through
// TakeMessage. Panics raised while serving a call are recovered and reported
// as KindUnspecified instead of unwinding into the caller.
package boundary
