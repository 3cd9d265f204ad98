// Package services talks to the crawl backend over HTTP.
//
// # Raw and Authenticated Clients
//
// [APIService] issues a single request and returns the response as-is. It is used for calls that must not
// trigger session recovery: logging in and the refresh exchange itself.
//
// [AuthenticatedClient] wraps an [APIService] for every call that needs a session. When the backend answers
// 403 it performs one refresh exchange (POST /api/auth/refresh-token with the stored username) and replays
// the original request once:
//   - refresh succeeds: the retry's outcome is returned, whatever it is
//   - refresh fails: the session store is cleared and the original 403 is returned
//   - the retry is rejected with 403 again: the error is escalated with [shared.ErrUnexpected]
//
// The backend keeps its access and refresh tokens in cookies, so the [http.Client] handed to [NewAPIService]
// should carry a cookie jar.
//
// # Services
//
// [AuthService] covers login, logout and session status. [ScrapeService] adds, lists and interrupts crawl
// tasks; its Interrupt method refuses tasks whose status already rules an interrupt out.
//
// # Error Handling
//
// Backend rejections surface as [*APIError]. Known 400 bodies are mapped to sentinels from the shared package:
//   - [shared.ErrInvalidURL] : "Invalid URL" from add-task
//   - [shared.ErrTaskInFinalState] : task already finished, errored or interrupted
//   - [shared.ErrInterruptAlreadySent] : task is already INTERRUPTING
//   - [shared.ErrBadCredentials] : login rejected
//
// [Classify] sorts any error into a [Kind] and the *Message functions produce the text shown to users.
package services
