package retriever

import (
	"context"
	"log/slog"

	"github.com/w-h-a/ragchat/crawler"
	"github.com/w-h-a/ragchat/docstore"
	"github.com/w-h-a/ragchat/document"
	"github.com/w-h-a/ragchat/embedder"
	"github.com/w-h-a/ragchat/index"
)

// Classification says which kinds of source contributed to a retrieval.
type Classification string

const (
	ClassificationDocument Classification = "document"
	ClassificationURL      Classification = "url"
	ClassificationBoth     Classification = "both"
	ClassificationGeneral  Classification = "general"
)

// Failure records a source that could not be searched. Retrieval degrades
// to the sources that did succeed instead of aborting, but the cause stays
// inspectable.
type Failure struct {
	Source string
	Err    error
}

// Result is the merged outcome of a multi-source retrieval.
type Result struct {
	Chunks         []document.Chunk
	Classification Classification
	Failures       []Failure
}

// Retriever runs diversity-aware nearest-neighbor search across indexed
// documents and, optionally, an ephemeral index built from a crawled URL.
type Retriever struct {
	options  Options
	store    *docstore.Store
	embedder embedder.Embedder
	crawler  crawler.Crawler
}

// Retrieve searches each known document id with MMR, then the URL if given.
// Unknown ids are dropped from the search set rather than treated as fatal,
// so the caller can still fall back to a general answer. Per-source errors
// degrade that source to zero results.
func (r *Retriever) Retrieve(ctx context.Context, question string, documentIds []string, url string) Result {
	result := Result{
		Chunks:         []document.Chunk{},
		Classification: ClassificationGeneral,
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		slog.WarnContext(ctx, "failed to embed question", "error", err)
		result.Failures = append(result.Failures, Failure{Source: "query", Err: err})
		return result
	}

	hasDocuments := false
	hasURL := false

	// 1. Per-document MMR, in the order the ids were given
	for _, documentId := range documentIds {
		idx, ok := r.store.Index(documentId)
		if !ok {
			slog.WarnContext(ctx, "requested document is not indexed", "document", documentId)
			continue
		}

		k := min(r.options.K, idx.Len())

		chunks := idx.SearchMMR(queryVec, k, r.options.FetchK, r.options.Lambda)
		if len(chunks) > 0 {
			hasDocuments = true
			result.Chunks = append(result.Chunks, chunks...)
		}
	}

	// 2. Ephemeral index over crawled chunks, folded in after document hits
	if len(url) > 0 {
		chunks, err := r.retrieveURL(ctx, queryVec, url)
		if err != nil {
			slog.WarnContext(ctx, "failed to retrieve from url", "url", url, "error", err)
			result.Failures = append(result.Failures, Failure{Source: url, Err: err})
		} else if len(chunks) > 0 {
			hasURL = true
			result.Chunks = append(result.Chunks, chunks...)
		}
	}

	switch {
	case hasDocuments && hasURL:
		result.Classification = ClassificationBoth
	case hasURL:
		result.Classification = ClassificationURL
	case hasDocuments:
		result.Classification = ClassificationDocument
	}

	return result
}

func (r *Retriever) retrieveURL(ctx context.Context, queryVec []float32, url string) ([]document.Chunk, error) {
	crawled, err := r.crawler.Crawl(ctx, url)
	if err != nil {
		return nil, err
	}

	if len(crawled) == 0 {
		return nil, nil
	}

	texts := make([]string, len(crawled))
	for i, chunk := range crawled {
		texts[i] = chunk.Content
	}

	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	// The index lives only for this call; URL content is not pre-indexed
	// the way uploaded documents are.
	idx := index.New(crawled, vecs)

	k := min(r.options.K, idx.Len())

	return idx.SearchMMR(queryVec, k, r.options.FetchK, r.options.Lambda), nil
}

func NewRetriever(store *docstore.Store, e embedder.Embedder, c crawler.Crawler, opts ...Option) *Retriever {
	options := NewOptions(opts...)

	r := &Retriever{
		options:  options,
		store:    store,
		embedder: e,
		crawler:  c,
	}

	return r
}
