package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/ragchat/document"
	localembedder "github.com/w-h-a/ragchat/embedder/local"
)

type failingEmbedder struct{}

func (e *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedder down")
}

func (e *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedder down")
}

func chunksOf(contents ...string) []document.Chunk {
	chunks := make([]document.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = document.Chunk{
			Content:  content,
			Metadata: document.Metadata{Filename: "test.pdf", ChunkIndex: i, SourceType: document.SourceTypeDocument},
		}
	}
	return chunks
}

func TestAddAndListDocuments(t *testing.T) {
	ctx := context.Background()
	store := NewStore(localembedder.NewEmbedder())

	require.NoError(t, store.AddDocuments(ctx, "doc-1", chunksOf("alpha", "beta")))
	require.NoError(t, store.AddDocuments(ctx, "doc-2", chunksOf("gamma")))

	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, store.ListDocuments())

	chunks, ok := store.Chunks("doc-1")
	require.True(t, ok)
	assert.Len(t, chunks, 2)

	idx, ok := store.Index("doc-1")
	require.True(t, ok)
	assert.Equal(t, 2, idx.Len())

	stats := store.Stats()
	assert.Equal(t, 2, stats.DocumentsLoaded)
	assert.Equal(t, 3, stats.ChunksCreated)
}

func TestAddDocumentsReplacesPriorChunks(t *testing.T) {
	ctx := context.Background()
	store := NewStore(localembedder.NewEmbedder())

	require.NoError(t, store.AddDocuments(ctx, "doc-1", chunksOf("old a", "old b", "old c")))
	require.NoError(t, store.AddDocuments(ctx, "doc-1", chunksOf("new")))

	chunks, ok := store.Chunks("doc-1")
	require.True(t, ok)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Content)

	idx, ok := store.Index("doc-1")
	require.True(t, ok)
	assert.Equal(t, 1, idx.Len())
}

func TestAddDocumentsCommitsNothingOnEmbedFailure(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&failingEmbedder{})

	err := store.AddDocuments(ctx, "doc-1", chunksOf("alpha"))

	require.Error(t, err)
	assert.Empty(t, store.ListDocuments())

	_, ok := store.Index("doc-1")
	assert.False(t, ok)
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	store := NewStore(localembedder.NewEmbedder())

	require.NoError(t, store.AddDocuments(ctx, "doc-1", chunksOf("alpha")))

	assert.True(t, store.RemoveDocument("doc-1"))
	assert.False(t, store.RemoveDocument("doc-1"))

	_, chunksOk := store.Chunks("doc-1")
	_, indexOk := store.Index("doc-1")
	assert.False(t, chunksOk)
	assert.False(t, indexOk)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore(localembedder.NewEmbedder())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.AddDocuments(ctx, fmt.Sprintf("doc-%d", i), chunksOf("content"))
		}(i)
		go func() {
			defer wg.Done()
			store.ListDocuments()
			store.Stats()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, store.Stats().DocumentsLoaded)
}
