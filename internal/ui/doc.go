// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI mirrors the web client's pages:
//  1. [TaskListView] : Browse past tasks, newest state from the backend
//  2. [AddTaskView] : Submit a link; success jumps straight to its progress
//  3. [ProgressView] : Live task report with a progress bar and an interrupt key
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Snapshots reach the model through a one-slot channel fed by [tasks.Watcher] callbacks, so a slow render drops
// stale snapshots instead of blocking the stream. Leaving the progress view closes the subscription.
//
// Keyboard bindings (enter, a, r, i, esc, q) are shown with charmbracelet/bubbles/help.
package ui
