// Package tokengen implements "gtoken generate": the one-shot, operator
// driven procedure that produces a token file.
//
// The procedure is modeled as a small state machine over the lifecycle of a
// Credential Set:
//
//	Unloaded ──load──▶ LoadedValid                      (terminal)
//	    │        └───▶ LoadedExpired ──refresh──▶ Refreshed | Failed
//	    │                    │
//	    └────authorize◀──────┘ (no refresh token)
//	              └─▶ Authorized | Failed
//
// Authorization runs the installed-application flow: a loopback callback
// receiver, the system browser pointed at the consent screen and a PKCE
// protected code exchange. Any transport failure is fatal; nothing is
// retried.
package tokengen
