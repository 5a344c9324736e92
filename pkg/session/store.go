package session

// Store abstracts durable, named persistence of sessions.
type Store interface {
	// Load returns the persisted session, or ErrNotFound.
	Load(name string) (*Session, error)
	// Save durably persists the session, atomically with respect to
	// process interruption.
	Save(s *Session) error
	// List returns all persisted session names in lexicographic order.
	List() ([]string, error)
	// Delete removes the persisted record, or returns ErrNotFound.
	// Deleting twice fails the second time.
	Delete(name string) error
}
