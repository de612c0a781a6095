package port

import "errors"

// Sentinel errors used across ports.
var (
	// ErrInvalidChunking signals a chunking configuration where the
	// window would never advance (overlap >= chunk size).
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrIndexUnavailable is returned by a vector index client whose
	// initialization failed; the client stays degraded for the process
	// lifetime.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmptyEmbedding signals an upstream embedding response that
	// contained no vector.
	ErrEmptyEmbedding = errors.New("empty embedding response")

	// ErrDimensionMismatch signals a record whose vector length does not
	// match the configured index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
