package knowledge

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRepositoryRequired is returned when Open is given no repository.
	ErrRepositoryRequired = errors.New("knowledge repository required")
)
