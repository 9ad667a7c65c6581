package ytpicker

import (
	"ytpicker/field"
	"ytpicker/internal/retry"
	"ytpicker/storage"
	"ytpicker/youtube"
)

// Type aliases for convenient error handling.
type (
	// APIError is an upstream Data API failure.
	APIError = youtube.APIError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrAPIKeyRequired indicates no Data API key was configured or sent.
	ErrAPIKeyRequired = youtube.ErrAPIKeyRequired
	// ErrQuotaExceeded indicates the daily Data API quota is used up.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded
	// ErrPlaylistNotFound indicates the playlist does not exist.
	ErrPlaylistNotFound = youtube.ErrPlaylistNotFound
	// ErrInvalidURL indicates the pasted URL is not a YouTube video or playlist.
	ErrInvalidURL = youtube.ErrInvalidURL

	// Query errors
	ErrInvalidOrder  = youtube.ErrInvalidOrder
	ErrInvalidFilter = youtube.ErrInvalidFilter

	// Field value errors
	ErrInvalidFormat = field.ErrInvalidFormat
	ErrInvalidKind   = field.ErrInvalidKind
	ErrMalformed     = field.ErrMalformed

	// Storage errors
	// ErrNotFound indicates a field value was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable determines if an error should be retried.
// It returns false for permanent errors such as a missing playlist.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
