package gdrive

import (
	"errors"
	"sync"
)

// session is the per-client identity map from remote ID to File instance.
// It guarantees at most one File per ID: local mutations (renames, flag
// toggles) live only on the instance and would be lost if two instances of
// the same remote file diverged.
//
// The session is the only shared mutable structure in the package; all
// access goes through resolve/register/invalidateFolder under the mutex.
// It never calls the network itself — loaders are supplied by callers and
// their errors propagate unchanged.
type session struct {
	mu    sync.Mutex
	files map[string]*File
}

func newSession() *session {
	return &session{files: make(map[string]*File)}
}

// lookup returns the registered instance for id, if any.
func (s *session) lookup(id string) (*File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]

	return f, ok
}

// register adds a File to the session. Registering an ID twice is a
// programming defect and fails with DuplicateRegistrationError; the first
// instance stays registered and the caller must discard the duplicate.
func (s *session) register(f *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.id]; ok {
		return &DuplicateRegistrationError{ID: f.id}
	}

	s.files[f.id] = f

	return nil
}

// resolve returns the registered instance for id, invoking load and
// registering the result when absent. Two concurrent resolves for the same
// uncached id may both call load (an acceptable duplicate remote call), but
// only one instance wins registration; the loser is discarded.
func (s *session) resolve(id string, load func() (*File, error)) (*File, error) {
	if f, ok := s.lookup(id); ok {
		return f, nil
	}

	f, err := load()
	if err != nil {
		return nil, err
	}

	return s.adopt(f), nil
}

// adopt registers f, or returns the instance that beat it to registration.
func (s *session) adopt(f *File) *File {
	err := s.register(f)
	if err == nil {
		return f
	}

	var dup *DuplicateRegistrationError
	if errors.As(err, &dup) {
		existing, _ := s.lookup(f.id)

		return existing
	}

	// register only fails with DuplicateRegistrationError.
	return f
}

// invalidateFolder discards the cached children of a registered folder so
// the next access re-lists from scratch. A no-op when id is unregistered or
// not a folder — mutations routinely target parents that were never loaded
// into the session.
func (s *session) invalidateFolder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || f.kind != KindFolder {
		return
	}

	f.children = nil
}
