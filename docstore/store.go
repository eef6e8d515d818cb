package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/w-h-a/ragchat/document"
	"github.com/w-h-a/ragchat/embedder"
	"github.com/w-h-a/ragchat/index"
)

// record pairs a document's chunks with the index built over their
// embeddings. Records are only ever swapped whole, so a reader never sees
// chunks without a matching index.
type record struct {
	chunks []document.Chunk
	index  *index.Index
}

// Stats is a read-only aggregate over the store, used by health checks.
type Stats struct {
	DocumentsLoaded int `json:"documents_loaded"`
	ChunksCreated   int `json:"chunks_created"`
}

// Store maps document ids to their chunks and vector indexes. Mutation is
// exclusive per store, reads are shared; embedding runs outside the lock so
// a slow embed of a large document does not block readers.
type Store struct {
	options  Options
	embedder embedder.Embedder
	records  map[string]record
	mtx      sync.RWMutex
}

// AddDocuments replaces any prior chunks under documentId and builds a fresh
// index over their embeddings. If embedding fails nothing is committed.
func (s *Store) AddDocuments(ctx context.Context, documentId string, chunks []document.Chunk) error {
	slog.InfoContext(ctx, "adding chunks", "document", documentId, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding error: %w", err)
	}

	cpy := make([]document.Chunk, len(chunks))
	copy(cpy, chunks)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.records[documentId] = record{
		chunks: cpy,
		index:  index.New(cpy, vecs),
	}

	return nil
}

// RemoveDocument deletes the chunk list and the index together. It reports
// whether the id existed; a missing id is not an error.
func (s *Store) RemoveDocument(documentId string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.records[documentId]; !ok {
		return false
	}

	delete(s.records, documentId)

	return true
}

// ListDocuments returns all currently indexed ids, in no particular order.
func (s *Store) ListDocuments() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}

	return ids
}

// Chunks returns the chunks stored under documentId.
func (s *Store) Chunks(documentId string) ([]document.Chunk, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	rec, ok := s.records[documentId]
	if !ok {
		return nil, false
	}

	return rec.chunks, true
}

// Index returns the vector index for documentId.
func (s *Store) Index(documentId string) (*index.Index, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	rec, ok := s.records[documentId]
	if !ok {
		return nil, false
	}

	return rec.index, true
}

func (s *Store) Stats() Stats {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	stats := Stats{
		DocumentsLoaded: len(s.records),
	}

	for _, rec := range s.records {
		stats.ChunksCreated += len(rec.chunks)
	}

	return stats
}

func NewStore(e embedder.Embedder, opts ...Option) *Store {
	options := NewOptions(opts...)

	s := &Store{
		options:  options,
		embedder: e,
		records:  map[string]record{},
		mtx:      sync.RWMutex{},
	}

	return s
}
