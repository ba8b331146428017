package history

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionSuffixLen = 9

// SessionIDPattern matches identifiers produced by NewSessionID
var SessionIDPattern = regexp.MustCompile(`^session_\d+_[a-z0-9]+$`)

// NewSessionID generates a client-side session identifier of the form
// session_<unix millis>_<base36 suffix>. Uniqueness is probabilistic only.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), randomSuffix())
}

// randomSuffix derives a short lowercase base36 string from a random UUID
func randomSuffix() string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	s := n.Text(36)
	if len(s) < sessionSuffixLen {
		s = strings.Repeat("0", sessionSuffixLen-len(s)) + s
	}
	return s[len(s)-sessionSuffixLen:]
}
