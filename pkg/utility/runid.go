package utility

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type RunID = uuid.UUID

var (
	sessionID     uuid.UUID
	sessionIDOnce sync.Once
	sessionIDMu   sync.RWMutex
)

// NewRunID returns a time ordered id, runs stored together sort by start.
func NewRunID() RunID {
	return uuid.Must(uuid.NewV7())
}

func ParseRunID(s string) (RunID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return id, nil
}

// SessionID identifies the process, every run of a sweep logs under the same one.
func SessionID() uuid.UUID {
	sessionIDOnce.Do(func() {
		sessionID = uuid.Must(uuid.NewV7())
	})

	sessionIDMu.RLock()
	defer sessionIDMu.RUnlock()
	return sessionID
}

func ResetSessionID() uuid.UUID {
	sessionIDOnce.Do(func() {})

	sessionIDMu.Lock()
	defer sessionIDMu.Unlock()

	sessionID = uuid.Must(uuid.NewV7())
	return sessionID
}
