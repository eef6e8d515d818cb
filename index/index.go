package index

import (
	"math"
	"sort"

	"github.com/w-h-a/ragchat/document"
)

// Hit is one scored result of a similarity search.
type Hit struct {
	Chunk     document.Chunk
	Embedding []float32
	Score     float64
}

// Index is a nearest-neighbor search structure over a fixed set of chunk
// embeddings. It is immutable after construction; replacing a document's
// chunks means building a new Index.
type Index struct {
	chunks     []document.Chunk
	embeddings [][]float32
}

// New builds an index over chunks and their embeddings. The two slices are
// parallel and must have equal length; callers guarantee this because both
// come from a single EmbedBatch call.
func New(chunks []document.Chunk, embeddings [][]float32) *Index {
	return &Index{
		chunks:     chunks,
		embeddings: embeddings,
	}
}

func (x *Index) Len() int {
	return len(x.chunks)
}

// Search returns the k most similar chunks to the query vector, best first.
func (x *Index) Search(vector []float32, k int) []Hit {
	if k < 1 {
		return nil
	}

	hits := make([]Hit, 0, len(x.chunks))
	for i, emb := range x.embeddings {
		hits = append(hits, Hit{
			Chunk:     x.chunks[i],
			Embedding: emb,
			Score:     CosineSimilarity(vector, emb),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits
}

// SearchMMR runs maximal-marginal-relevance selection: an over-sampled pool
// of fetchK candidates is fetched by similarity, then k results are greedily
// selected to balance query relevance against redundancy with what was
// already picked. lambda=1 is pure relevance, lambda=0 pure diversity.
func (x *Index) SearchMMR(vector []float32, k int, fetchK int, lambda float64) []document.Chunk {
	if k < 1 {
		return nil
	}

	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}

	pool := x.Search(vector, fetchK)

	selected := make([]Hit, 0, k)

	for len(selected) < k && len(pool) > 0 {
		bestIdx := -1
		best := math.Inf(-1)

		for i, cand := range pool {
			maxSim := 0.0
			for _, sel := range selected {
				if sim := CosineSimilarity(cand.Embedding, sel.Embedding); sim > maxSim {
					maxSim = sim
				}
			}

			current := (lambda * cand.Score) - ((1 - lambda) * maxSim)

			if current > best {
				best = current
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}

		selected = append(selected, pool[bestIdx])
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
	}

	chunks := make([]document.Chunk, 0, len(selected))
	for _, hit := range selected {
		chunks = append(chunks, hit.Chunk)
	}

	return chunks
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
