package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireInitializesOnce(t *testing.T) {
	var builds int32
	loader := NewLoaderFunc(func() (*Embedder, error) {
		atomic.AddInt32(&builds, 1)
		return NewEmbedder(t.TempDir())
	})

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*Embedder, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := loader.Acquire(context.Background())
			require.NoError(t, err)
			results[i] = e
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&builds))
	for _, e := range results {
		assert.Same(t, results[0], e)
	}
}

func TestAcquireRetriesAfterFailedBuild(t *testing.T) {
	var builds int32
	fail := true
	loader := NewLoaderFunc(func() (*Embedder, error) {
		atomic.AddInt32(&builds, 1)
		if fail {
			return nil, errors.New("stats file corrupt")
		}
		return NewEmbedder(t.TempDir())
	})

	_, err := loader.Acquire(context.Background())
	require.Error(t, err)

	// The failure must not be cached.
	fail = false
	e, err := loader.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.EqualValues(t, 2, atomic.LoadInt32(&builds))
}

func TestAcquireHonorsCanceledContext(t *testing.T) {
	loader := NewLoaderFunc(func() (*Embedder, error) {
		return NewEmbedder(t.TempDir())
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
