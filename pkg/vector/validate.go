package vector

import (
	"fmt"
	"sort"
)

// ValidateBatch checks a batch of documents before any of them is stored.
// dimensions is the current index dimension (zero when not yet fixed), and
// the returned value is the dimension the batch fixes. IDs must be non-empty
// and unique within the batch.
func ValidateBatch(docs []Document, dimensions int) (int, error) {
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			return dimensions, fmt.Errorf("document id is required")
		}
		if _, dup := seen[doc.ID]; dup {
			return dimensions, fmt.Errorf("%w: %q appears twice in batch", ErrDuplicateDocument, doc.ID)
		}
		seen[doc.ID] = struct{}{}

		if dimensions == 0 {
			dimensions = len(doc.Embedding)
		}
		if err := CheckEmbedding(doc.ID, doc.Embedding, dimensions); err != nil {
			return dimensions, err
		}
	}
	return dimensions, nil
}

// ValidateQuery checks a query embedding and topK against the index dimension.
func ValidateQuery(embedding []float32, topK, dimensions int) error {
	if topK < 1 {
		return ErrInvalidTopK
	}
	return CheckEmbedding("", embedding, dimensions)
}

// RankStable sorts results by descending score, keeping the given order for
// equal scores, and truncates to topK.
func RankStable(results []QueryResult, topK int) []QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
