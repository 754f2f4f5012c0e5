package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrInvalid
	ErrTooMany
	ErrInternal
	ErrNotReady
	ErrModelService
	ErrToolLoopExceeded
)
