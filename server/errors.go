package server

import "errors"

var (
	// ErrIngesterRequired is returned when the server is created without a feed service.
	ErrIngesterRequired = errors.New("feed ingester required")

	// ErrChatServiceRequired is returned when the server is created without a chat service.
	ErrChatServiceRequired = errors.New("chat service required")

	// ErrInvalidBasePath is returned for base paths that do not start with a slash.
	ErrInvalidBasePath = errors.New("base path must start with /")
)
