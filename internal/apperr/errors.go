// Package apperr holds the failure kinds that surface to the user.
// Recoverable failures (rewrite fallback, empty retrieval, malformed history
// entries) are handled where they occur and never reach this taxonomy.
package apperr

import "errors"

var (
	// ErrParseFailure means the uploaded document could not be parsed.
	ErrParseFailure = errors.New("document parse failed")

	// ErrIndexingFailure means the document parsed but embedding or storage failed.
	ErrIndexingFailure = errors.New("document indexing failed")

	// ErrNoDocumentYet means a question arrived before any successful upload.
	ErrNoDocumentYet = errors.New("no document indexed for user")
)
