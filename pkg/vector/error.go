package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrZeroNorm is returned when cosine similarity is requested for a zero vector.
	ErrZeroNorm = errors.New("embedding has zero norm")

	// ErrInvalidTopK is returned when a query asks for fewer than one result.
	ErrInvalidTopK = errors.New("topK must be at least 1")

	// ErrDuplicateDocument is returned when adding an ID that is already stored.
	ErrDuplicateDocument = errors.New("document already exists")
)

// DimensionMismatchError reports an embedding whose length differs from
// the index dimension.
type DimensionMismatchError struct {
	// ID of the offending document, empty for queries.
	ID string

	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s for document %q: expected %d, got %d", ErrDimensionMismatch, e.ID, e.Expected, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) hold.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
