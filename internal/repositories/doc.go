// Package repositories implements local persistence for the scrapectl client.
//
// Key Implementations:
//   - [SessionRepository] : SQLite-backed [models.SessionStore] holding the identity marker
//   - [MemorySessionStore] : In-process [models.SessionStore] for tests and ephemeral runs
//   - [CookieJar] : [http.CookieJar] that mirrors backend cookies into SQLite so access and
//     refresh cookies survive between CLI invocations
//
// All writes happen synchronously inside the mutating call, so a reader that runs after
// Set or Clear returns observes the new value.
package repositories
