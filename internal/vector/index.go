// Package vector is an append-only nearest-neighbor index over embedded
// text fragments. Vectors are unit-normalized, so cosine ranking reduces to
// a dot product. The index persists as a file pair (raw vectors + JSON
// metadata) and is rebuilt from it before first query on restart.
package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"proctorhub/internal/platform/embedding"
)

const (
	vectorsFile  = "vectors.bin"
	metadataFile = "metadata.json"
)

// Entry ties one embedded fragment back to its origin.
type Entry struct {
	SubmissionID string    `json:"submission_id"`
	FileID       string    `json:"file_id"`
	Fragment     int       `json:"fragment"` // fragment offset within the file
	Vector       []float32 `json:"-"`
}

type Match struct {
	Entry      Entry
	Similarity float64
}

// Index is safe for concurrent use: inserts take the write lock, queries a
// read lock (snapshot-at-query-start semantics).
type Index struct {
	mu      sync.RWMutex
	entries []Entry
	dir     string
	ready   bool
}

func New(dir string) *Index {
	return &Index{dir: dir}
}

// Load rebuilds the index from the persisted file pair. Missing files mean
// a fresh index; a corrupt pair is an error and leaves the index not ready,
// which disables only the plagiarism analyzer.
func (idx *Index) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory %s: %w", idx.dir, err)
	}

	metaPath := filepath.Join(idx.dir, metadataFile)
	vecPath := filepath.Join(idx.dir, vectorsFile)

	metaData, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		idx.entries = nil
		idx.ready = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index metadata: %w", err)
	}

	var metas []Entry
	if err := json.Unmarshal(metaData, &metas); err != nil {
		return fmt.Errorf("failed to parse index metadata: %w", err)
	}

	raw, err := os.ReadFile(vecPath)
	if err != nil {
		return fmt.Errorf("failed to read index vectors: %w", err)
	}
	want := len(metas) * embedding.Dim * 4
	if len(raw) != want {
		return fmt.Errorf("index vectors size mismatch: have %d bytes, want %d", len(raw), want)
	}

	for i := range metas {
		vec := make([]float32, embedding.Dim)
		for j := 0; j < embedding.Dim; j++ {
			off := (i*embedding.Dim + j) * 4
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		}
		metas[i].Vector = vec
	}

	idx.entries = metas
	idx.ready = true
	return nil
}

// Ready reports whether the index was loaded (or freshly created). A failed
// Load leaves it false.
func (idx *Index) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ready
}

func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Insert appends an entry and persists the index. Duplicate fragments are
// not deduplicated; callers dedup upstream by fragment identity if needed.
func (idx *Index) Insert(e Entry) error {
	if len(e.Vector) != embedding.Dim {
		return fmt.Errorf("vector dimension %d, want %d", len(e.Vector), embedding.Dim)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = append(idx.entries, e)
	return idx.save()
}

// InsertBatch appends several entries with a single persist.
func (idx *Index) InsertBatch(entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != embedding.Dim {
			return fmt.Errorf("vector dimension %d, want %d", len(e.Vector), embedding.Dim)
		}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = append(idx.entries, entries...)
	return idx.save()
}

// Query returns up to k nearest entries, most similar first. An empty index
// returns an empty result, never an error.
func (idx *Index) Query(vec []float32, k int) []Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 || len(idx.entries) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(idx.entries))
	for _, e := range idx.entries {
		matches = append(matches, Match{Entry: e, Similarity: dot(vec, e.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// RemoveSubmission drops every entry belonging to a submission and persists.
// Called by the cleanup worker when a submission is deleted.
func (idx *Index) RemoveSubmission(submissionID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	removed := 0
	for _, e := range idx.entries {
		if e.SubmissionID == submissionID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	idx.entries = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, idx.save()
}

// save writes the file pair. Callers hold the write lock.
func (idx *Index) save() error {
	raw := make([]byte, len(idx.entries)*embedding.Dim*4)
	for i, e := range idx.entries {
		for j, v := range e.Vector {
			off := (i*embedding.Dim + j) * 4
			binary.LittleEndian.PutUint32(raw[off:], math.Float32bits(v))
		}
	}
	if err := os.WriteFile(filepath.Join(idx.dir, vectorsFile), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write index vectors: %w", err)
	}

	meta, err := json.Marshal(idx.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal index metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(idx.dir, metadataFile), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write index metadata: %w", err)
	}
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
