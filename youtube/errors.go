package youtube

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for picker operations.
var (
	ErrAPIKeyRequired   = errors.New("youtube: API key is required")
	ErrInvalidOrder     = errors.New("youtube: invalid order")
	ErrInvalidFilter    = errors.New("youtube: invalid content filter")
	ErrQuotaExceeded    = errors.New("youtube: quota exceeded")
	ErrPlaylistNotFound = errors.New("youtube: playlist not found")
	ErrNotFound         = errors.New("youtube: resource not found")
	ErrInvalidURL       = errors.New("youtube: invalid URL")
)

// APIError is an upstream Data API failure with the HTTP status and the
// first error reason the API reported.
//
//	var apiErr *youtube.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Println(apiErr.Status, apiErr.Reason)
//	}
type APIError struct {
	// Op is the API call that failed ("search.list", "videos.list", ...).
	Op string
	// Status is the upstream HTTP status code.
	Status int
	// Message is the upstream error message.
	Message string
	// Reason is the first upstream error reason, e.g. "quotaExceeded".
	Reason string
	// Err is the underlying error.
	Err error
}

func (e *APIError) Error() string {
	msg := "youtube: " + e.Op + ": " + e.Message
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Unwrap exposes the sentinel matching the reason, if any, followed by the
// original error.
func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch {
	case e.Reason == "quotaExceeded" || e.Reason == "dailyLimitExceeded":
		errs = append(errs, ErrQuotaExceeded)
	case e.Reason == "playlistNotFound":
		errs = append(errs, ErrPlaylistNotFound)
	case e.Status == http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// wrapAPIError converts a *googleapi.Error into an *APIError. Other errors
// are returned unchanged.
func wrapAPIError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	out := &APIError{
		Op:      op,
		Status:  gerr.Code,
		Message: gerr.Message,
		Err:     err,
	}
	if len(gerr.Errors) > 0 {
		out.Reason = gerr.Errors[0].Reason
		if out.Message == "" {
			out.Message = gerr.Errors[0].Message
		}
	}
	if out.Message == "" {
		out.Message = http.StatusText(gerr.Code)
	}
	return out
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
