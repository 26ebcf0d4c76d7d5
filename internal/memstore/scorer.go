package memstore

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder mirrors the embedding-provider boundary the spec treats as an
// external collaborator (spec §1 scope: "the vector-similarity/embedding
// storage engine... specified only through its add/query/delete contract").
// Grounded on the teacher's internal/memory/embeddings.Provider interface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// Scorer scores a query against a candidate value in [0, 1], higher meaning
// more similar (spec §3 invariant).
type Scorer interface {
	Score(query, value string) float64
}

// DefaultScorer is a deterministic, dependency-free placeholder used when no
// Embedder is configured. The spec explicitly leaves "the exact embedding
// model and dimension" as an open question it forbids guessing at (spec §9);
// this scorer does not attempt to answer that question. It exists only so
// QuerySemantic has *a* function to call, and is a token-overlap (Jaccard)
// measure over lower-cased whitespace tokens — deterministic, symmetric,
// and bounded in [0, 1] by construction, satisfying the scoring invariant
// without inventing an embedding algorithm.
type DefaultScorer struct{}

func (DefaultScorer) Score(query, value string) float64 {
	q := tokenSet(query)
	v := tokenSet(value)
	if len(q) == 0 || len(v) == 0 {
		return 0
	}

	intersection := 0
	for t := range q {
		if _, ok := v[t]; ok {
			intersection++
		}
	}
	union := len(q) + len(v) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// EmbeddingScorer scores via cosine similarity of embeddings produced by an
// Embedder, rescaled from [-1, 1] to [0, 1] to preserve the scoring
// invariant regardless of the underlying embedding's own range.
type EmbeddingScorer struct {
	Embedder Embedder
}

func (s EmbeddingScorer) Score(ctx context.Context, query, value string) (float64, error) {
	qv, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return 0, err
	}
	vv, err := s.Embedder.Embed(ctx, value)
	if err != nil {
		return 0, err
	}
	cos := cosineSimilarity(qv, vv)
	return (cos + 1) / 2, nil
}

func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// HashEmbedder is a deterministic, dependency-free Embedder used in tests
// and as a last-resort fallback: it hashes tokens into a fixed-width
// bag-of-words vector. It is not a semantically meaningful embedding model
// (see the open question this sidesteps) but gives EmbeddingScorer something
// concrete to exercise without fabricating an external dependency.
type HashEmbedder struct {
	Dim int
}

func (h HashEmbedder) Dimension() int {
	if h.Dim <= 0 {
		return 64
	}
	return h.Dim
}

func (h HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	dim := h.Dimension()
	vec := make([]float64, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		vec[int(hasher.Sum32())%dim]++
	}
	return vec, nil
}
