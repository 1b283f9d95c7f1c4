package publish

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// IdempotencyTTL is how long a recorded (owner, token) pair deduplicates
// resubmissions. Expiry just loses deduplication, nothing else.
const IdempotencyTTL = time.Hour

const idempotencyCacheSize = 16384

// IdempotencyStore maps (owner, client token) to the status created for
// it. A miss is a normal outcome. Implementations must never fail
// publication: an unavailable backend degrades to a permanent miss.
//
// The lookup-then-record window is not atomic across the pipeline, so two
// concurrent identical resubmissions can both miss and both publish. That
// race is accepted; closing it needs a compare-and-set backend.
type IdempotencyStore interface {
	Lookup(owner uuid.UUID, token string) (uuid.UUID, bool)
	Record(owner uuid.UUID, token string, statusId uuid.UUID)
}

type idemKey struct {
	owner uuid.UUID
	token string
}

// MemoryIdempotencyStore is the in-process store: a bounded LRU with TTL
// expiry.
type MemoryIdempotencyStore struct {
	cache *lru.LRU[idemKey, uuid.UUID]
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		cache: lru.NewLRU[idemKey, uuid.UUID](idempotencyCacheSize, nil, IdempotencyTTL),
	}
}

func (s *MemoryIdempotencyStore) Lookup(owner uuid.UUID, token string) (uuid.UUID, bool) {
	return s.cache.Get(idemKey{owner: owner, token: token})
}

func (s *MemoryIdempotencyStore) Record(owner uuid.UUID, token string, statusId uuid.UUID) {
	s.cache.Add(idemKey{owner: owner, token: token}, statusId)
}
