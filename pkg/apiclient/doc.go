// Package apiclient implements the transport boundary of the notification
// engine: one method per remote operation, a bounded timeout per call, and
// a small error taxonomy (NetworkError, ServerError) that the polling
// scheduler uses to decide between retrying and giving up.
//
// The client never retries on its own and treats a 404 on mutations as
// already-satisfied, so callers can invoke mark-read and delete without
// first checking whether the notification still exists server-side.
package apiclient
