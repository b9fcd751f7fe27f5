// Package session tracks which application is "current" for each caller
// session. The binding is explicit, session-keyed state set at application
// creation time, never a module-level singleton or guessed from the mere
// existence of an application.
package session

import "context"

// Store maps a session identifier to its current application id.
type Store interface {
	Bind(ctx context.Context, sessionID, applicationID string) error
	Current(ctx context.Context, sessionID string) (string, error)
}
