// Package tasks follows crawl tasks while they run and submits them in bulk.
//
// # Live Progress
//
// The backend publishes a task's state on GET /api/scrape/task/{id}/listen as a server-sent event stream.
// Every "message" event carries a complete snapshot; a consumer replaces its previous snapshot instead of
// merging fields.
//
// [Stream] reads that endpoint the way a browser EventSource does:
//   - a dropped connection, or one the server ends before the task is terminal, is retried after a delay
//     with the Last-Event-ID header set
//   - a response that is not a 200 text/event-stream is fatal
//   - too many failed attempts in a row is fatal
//   - the server ending the stream after a terminal snapshot is a normal end
//
// A [Subscription] wraps one Stream run behind Next and Close. [Watcher] sits on top for consumers that
// follow one task at a time: opening a task closes the previous one, and callbacks never start after Close
// returns.
//
// [Derive] turns a snapshot into a [View] with progress percentage, error flag, and interrupt eligibility.
//
// # Bulk Submission
//
// [BulkSubmitter] adds many links with a rate-limited worker pool. Progress is reported on a channel with
// select/default so a slow reader never blocks the workers.
package tasks
