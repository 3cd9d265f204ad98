// Package models defines the domain types shared by the scrapectl client.
//
// The package contains three groups of types:
//
// 1. Wire types decoded from the crawl backend
//   - [TaskSnapshot] : One complete point-in-time description of a task, pushed on the listen stream
//   - [TaskSummary] : A task as listed by GET /api/scrape/tasks
//
// 2. The task status machine
//   - [TaskStatus] : Closed set of task states
//   - [IsInterruptible], [IsTerminal], [IsErrorState] : Status classification
//   - [ProgressPercent] : Progress derived from a snapshot
//
// 3. Session state
//   - [Session] : The local identity marker
//   - [SessionStore] : Get/Set/Clear access to the marker, implemented in the repositories package
//
// Everything here is pure data and pure functions; nothing performs I/O.
package models
