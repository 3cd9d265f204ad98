// package models defines the data model for the scrapectl client
package models

// Session is the local identity marker. The backend's own session lives in cookies.
type Session struct {
	Identity string
}

// IsAuthenticated reports whether an identity is present.
func (s Session) IsAuthenticated() bool {
	return s.Identity != ""
}

// SessionStore holds the current identity marker.
//
// Writes are synchronous: a Get that follows a Set or Clear observes it.
// An empty identity means no session.
type SessionStore interface {
	Get() (string, error)      // Get returns the stored identity, or "" when there is none
	Set(identity string) error // Set persists identity, replacing any previous one
	Clear() error              // Clear removes the identity
}

// LoadSession reads the store into a [Session].
func LoadSession(store SessionStore) (Session, error) {
	identity, err := store.Get()
	if err != nil {
		return Session{}, err
	}
	return Session{Identity: identity}, nil
}
