package identity

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// maxUnbiased is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are rejected so every character is equally likely.
const maxUnbiased = 256 - 256%len(alphabet)

// SessionInterface exposes the identity of the running agent instance.
type SessionInterface interface {
	GetUserID() string
}

// Session holds the ephemeral identifier that distinguishes this instance's
// broadcasts from its peers'. It lives only as long as the process.
type Session struct {
	userID string
}

// NewSession generates a fresh session id of the form prefix + n random
// lowercase alphanumerics.
func NewSession(prefix string, n int) *Session {
	return &Session{userID: prefix + randomToken(n)}
}

// NewSessionWithID wraps a known id, mostly useful in tests.
func NewSessionWithID(userID string) *Session {
	return &Session{userID: userID}
}

// GetUserID returns the session's user id.
func (s *Session) GetUserID() string {
	return s.userID
}

// randomToken draws n characters uniformly from alphabet.
func randomToken(n int) string {
	var b strings.Builder
	b.Grow(n)
	buf := make([]byte, n+n/4+1)
	for b.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("identity: reading random bytes: %v", err))
		}
		for _, c := range buf {
			if b.Len() == n {
				break
			}
			if int(c) >= maxUnbiased {
				continue
			}
			b.WriteByte(alphabet[int(c)%len(alphabet)])
		}
	}
	return b.String()
}
