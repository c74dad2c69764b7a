// Package async provides a minimal Future type for callers that want a
// fire-and-forget handle on a background computation, such as triggering
// an out-of-band notification refresh without blocking a UI event handler.
package async
