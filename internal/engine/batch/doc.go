// Package batch provides a generic orchestrator for running many workflow
// executions through a bounded worker pool.
//
// The orchestrator dispatches a caller-supplied unit of work for each input
// item, keeps at most a configured number of calls in flight, retries
// transient failures (rate limiting) with exponential backoff, and reports
// aggregate progress as items reach terminal states. Key guarantees:
//   - Exactly one WorkItem per input, returned in input order
//   - At most Concurrency items running at any instant
//   - Terminal states (Completed, Failed) are never revisited
//   - A single item exhausting its retries never aborts the batch
//   - Cancellation lets in-flight calls finish and leaves undispatched
//     items Pending in the final report
package batch
