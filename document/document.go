package document

// SourceType classifies where a chunk was ingested from.
type SourceType string

const (
	SourceTypeDocument SourceType = "document"
	SourceTypeURL      SourceType = "url"
)

// Metadata carries the provenance of a chunk. It is set once at ingestion
// and never mutated afterwards.
type Metadata struct {
	Filename   string     `json:"filename,omitempty"`
	Page       *int       `json:"page,omitempty"`
	Section    *string    `json:"section,omitempty"`
	ChunkIndex int        `json:"chunk_index"`
	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url,omitempty"`
}

// Chunk is the atomic unit of retrieval: a bounded span of source text plus
// provenance metadata.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Source is one entry of the attribution list returned with an answer.
type Source struct {
	Filename *string `json:"filename"`
	Page     *int    `json:"page"`
	Section  *string `json:"section"`
}

// DedupeSources derives the attribution list from the chunks that contributed
// to an answer. Uniqueness key is the filename (or source URL for crawled
// chunks); the first chunk seen for a file decides the page and section.
func DedupeSources(chunks []Chunk) []Source {
	sources := []Source{}
	seen := map[string]struct{}{}

	for _, chunk := range chunks {
		if chunk.Metadata.SourceType == SourceTypeURL {
			url := chunk.Metadata.SourceURL
			if len(url) == 0 {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			u := url
			sources = append(sources, Source{Filename: &u})
			continue
		}

		filename := chunk.Metadata.Filename
		if len(filename) == 0 {
			continue
		}
		if _, ok := seen[filename]; ok {
			continue
		}
		seen[filename] = struct{}{}
		f := filename
		sources = append(sources, Source{
			Filename: &f,
			Page:     chunk.Metadata.Page,
			Section:  chunk.Metadata.Section,
		})
	}

	return sources
}
