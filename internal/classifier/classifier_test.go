package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRandom_Thresholds checks the extremes: 0 always matches, above 100 never does.
func TestRandom_Thresholds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewRandom(1, 2)
	frame := []byte{0xff, 0xd8}

	for range 100 {
		cat, err := c.ImageContainsCat(ctx, frame, 0)
		require.NoError(t, err)
		require.True(t, cat)

		cat, err = c.ImageContainsCat(ctx, frame, 100.1)
		require.NoError(t, err)
		require.False(t, cat)
	}
}

// TestRandom_Deterministic ensures equal seeds give equal verdict sequences.
func TestRandom_Deterministic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, b := NewRandom(7, 7), NewRandom(7, 7)

	for range 20 {
		x, err := a.ImageContainsCat(ctx, []byte{1}, 50)
		require.NoError(t, err)

		y, err := b.ImageContainsCat(ctx, []byte{1}, 50)
		require.NoError(t, err)
		require.Equal(t, x, y)
	}
}

// TestClassifiers_RejectEmptyImage verifies both classifiers fail on empty frames.
func TestClassifiers_RejectEmptyImage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewRandom(1, 1).ImageContainsCat(ctx, nil, 50)
	require.ErrorIs(t, err, ErrEmptyImage)

	_, err = Static{Verdict: true}.ImageContainsCat(ctx, []byte{}, 50)
	require.ErrorIs(t, err, ErrEmptyImage)

	cat, err := Static{Verdict: true}.ImageContainsCat(ctx, []byte{1}, 50)
	require.NoError(t, err)
	require.True(t, cat)
}

// TestRandom_CanceledContext verifies the classifier honors cancellation.
func TestRandom_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRandom(1, 1).ImageContainsCat(ctx, []byte{1}, 50)
	require.ErrorIs(t, err, context.Canceled)
}
