package certificates

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	defaultIDPrefix = "NH"
	maxIDAttempts   = 10

	digitChars = "0123456789"
	alnumChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ExistsFunc reports whether a candidate certificate identifier is already
// taken. The allocator never touches storage directly.
type ExistsFunc func(ctx context.Context, certificateID string) (bool, error)

// Allocator hands out human-readable certificate identifiers of the form
// PREFIX-YYYY-NNNNN.
type Allocator struct {
	prefix string
}

func NewAllocator(prefix string) *Allocator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = defaultIDPrefix
	}
	return &Allocator{prefix: prefix}
}

// Allocate picks a fresh identifier, retrying on collision. After the retry
// budget is exhausted it falls back to a longer random suffix whose collision
// odds are negligible, so the fallback is not re-checked.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc) (string, error) {
	year := time.Now().Year()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := fmt.Sprintf("%s-%d-%s", a.prefix, year, randomString(digitChars, 5))
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check certificate id: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s-%d-%s", a.prefix, year, randomString(alnumChars, 8)), nil
}

func randomString(alphabet string, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
