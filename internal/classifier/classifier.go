package classifier

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
)

// ErrEmptyImage is returned when a frame carries no data.
var ErrEmptyImage = errors.New("image is empty")

// Random reports a cat when a pseudo random confidence in [0, 100)
// reaches the threshold.
type Random struct {
	// rnd is the source of confidences.
	rnd *rand.Rand
	// mu protects rnd, which is not safe for concurrent use.
	mu sync.Mutex
}

// NewRandom returns a Random classifier seeded with the given values.
func NewRandom(seed1, seed2 uint64) *Random {
	return &Random{
		rnd: rand.New(rand.NewPCG(seed1, seed2)), //nolint:gosec // Not used for security.
	}
}

// ImageContainsCat draws a confidence and compares it with the threshold.
func (r *Random) ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if len(image) == 0 {
		return false, ErrEmptyImage
	}

	r.mu.Lock()
	confidence := r.rnd.Float32() * 100
	r.mu.Unlock()

	return confidence >= confidenceThreshold, nil
}

// Static always returns the same verdict.
type Static struct {
	// Verdict is the answer for every non-empty frame.
	Verdict bool
}

// ImageContainsCat returns the fixed verdict.
func (s Static) ImageContainsCat(_ context.Context, image []byte, _ float32) (bool, error) {
	if len(image) == 0 {
		return false, ErrEmptyImage
	}

	return s.Verdict, nil
}
