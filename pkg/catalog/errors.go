package catalog

import (
	"errors"

	"github.com/nainya/howcatalog/pkg/substrate"
)

var (
	// ErrEncoding indicates a payload that cannot be encoded or decoded
	ErrEncoding = substrate.ErrEncoding

	// ErrAgentTag indicates a malformed steward or editor key
	ErrAgentTag = substrate.ErrAgentTag

	// ErrMissingPath indicates an anchor path that should exist but does not
	ErrMissingPath = errors.New("catalog: missing path")

	// ErrInvalidState indicates a state that cannot be carried in an
	// index tag
	ErrInvalidState = errors.New("catalog: invalid state")

	// ErrDocumentNotFound indicates a write-confirmation miss or a
	// direct fetch of an address that resolves to nothing
	ErrDocumentNotFound = errors.New("catalog: document not found")
)
