package port

import (
	"iter"

	"supportrag/internal/domain"
)

type Chunker interface {
	Chunk(text string, metadata map[string]string) iter.Seq[domain.Chunk]
}
