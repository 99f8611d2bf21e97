package appointment

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator produces appointment ids.
type IDGenerator func() string

// NewULIDGenerator returns a generator of monotonic ULIDs. Within one
// millisecond ids increase by a random step drawn from the 80-bit entropy,
// so two ids from the same generator never collide; across processes the
// chance of a clash is about n²/2^81 per millisecond.
func NewULIDGenerator() IDGenerator {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)

	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}
