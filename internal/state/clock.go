package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	sessionID = uuid.NewString()
	sequence  uint64
)

// SessionID identifies this process run in logs.
func SessionID() string { return sessionID }

// nextSeq orders snapshots within the session.
func nextSeq() uint64 {
	return atomic.AddUint64(&sequence, 1)
}

// NewID returns a random identifier with a readable prefix.
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
