package idempotency

import (
	"context"
	"time"

	"github.com/travelplan/itinerary-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + owner + route + request body hash.
// Route is HTTP method + route template (e.g. "POST /trips/{tripId}/cities") plus
// the concrete path parameters, so the same key on two trips does not collide.
type Fingerprint struct {
	Key      Key
	Owner    domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
