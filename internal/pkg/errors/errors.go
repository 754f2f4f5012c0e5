package errors

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrTooMany      = errors.New("too many requests")

	// startup
	ErrInvalidConfig    = errors.New("invalid config")
	ErrDocumentLoad     = errors.New("document load failed")
	ErrEmbeddingService = errors.New("embedding service failed")
	ErrAlreadyBuilt     = errors.New("index already built")

	// per query / per turn
	ErrEmptyIndex       = errors.New("index is empty or not built")
	ErrSchemaValidation = errors.New("tool input schema validation failed")
	ErrModelService     = errors.New("model service failed")
	ErrToolLoopExceeded = errors.New("tool call rounds exceeded")
)

// IsTurnRecoverable reports whether a turn failure should be shown to the user
// as an answer while the session keeps going.
func IsTurnRecoverable(err error) bool {
	return errors.Is(err, ErrModelService) ||
		errors.Is(err, ErrToolLoopExceeded) ||
		errors.Is(err, ErrSchemaValidation) ||
		errors.Is(err, ErrEmbeddingService)
}
