package embedding

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Loader guards one-time initialization of the shared Embedder. The first
// caller builds it; concurrent callers block and receive the same instance.
// A failed build is not cached: the next Acquire retries. sync.Once is
// deliberately not used here because it would poison the loader on failure.
type Loader struct {
	mu    sync.RWMutex
	res   *Embedder
	build func() (*Embedder, error)
}

func NewLoader(dataDir string) *Loader {
	return &Loader{
		build: func() (*Embedder, error) { return NewEmbedder(dataDir) },
	}
}

// NewLoaderFunc exists for tests and alternative embedder backends.
func NewLoaderFunc(build func() (*Embedder, error)) *Loader {
	return &Loader{build: build}
}

// Acquire returns the shared embedder, initializing it on first use.
// At most one initialization runs at a time; every concurrent first caller
// either gets the built resource or the build error.
func (l *Loader) Acquire(ctx context.Context) (*Embedder, error) {
	l.mu.RLock()
	if e := l.res; e != nil {
		l.mu.RUnlock()
		return e, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.res != nil {
		return l.res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := l.build()
	if err != nil {
		return nil, fmt.Errorf("embedder initialization failed: %w", err)
	}
	l.res = e
	log.Println("Embedder initialized.")
	return e, nil
}
