package extract

import "errors"

var (
	// ErrRendererRequired is returned when a handler is created without a renderer.
	ErrRendererRequired = errors.New("renderer required")

	// ErrStoreRequired is returned when a handler is created without a vector store.
	ErrStoreRequired = errors.New("vector store required")

	// ErrMarkerRepositoryRequired is returned when a handler is created without a marker repository.
	ErrMarkerRepositoryRequired = errors.New("marker repository required")

	// ErrInvalidChunker is returned for window settings that cannot make progress.
	ErrInvalidChunker = errors.New("chunk overlap must be smaller than chunk size")

	// ErrEmptyPage is returned when a rendered page has no visible text.
	ErrEmptyPage = errors.New("page has no visible text")

	// ErrUnexpectedStatus is returned for non-2xx page responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
