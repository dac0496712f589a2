package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrRSVPNotFound is returned when no RSVP record matches.
	ErrRSVPNotFound = errors.New("rsvp not found")
	// ErrFullNameRequired is returned when an RSVP draft has a blank name.
	ErrFullNameRequired = errors.New("full name is required")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrMessageEmpty is returned for a blank guest message.
	ErrMessageEmpty = errors.New("message text is required")
	// ErrMessageTooLong is returned when a guest message exceeds the length limit.
	ErrMessageTooLong = errors.New("message text is too long")
	// ErrWeakPassword is returned when a password is shorter than required.
	ErrWeakPassword = errors.New("password is too short")

	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when trying to register an existing user.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidResetToken is returned when a password reset link is invalid or expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset link")
	// ErrUnauthenticated is returned when a request carries no usable session.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrFolderNotConfigured is returned for an unknown or unset album folder.
	ErrFolderNotConfigured = errors.New("album folder is not configured")
	// ErrFeatureDisabled is returned when a feature lacks its configuration.
	ErrFeatureDisabled = errors.New("feature is not configured")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrRSVPNotFound, http.StatusNotFound, "RSVP_NOT_FOUND"},
	{ErrFullNameRequired, http.StatusBadRequest, "FULL_NAME_REQUIRED"},
	{ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
	{ErrMessageEmpty, http.StatusBadRequest, "MESSAGE_EMPTY"},
	{ErrMessageTooLong, http.StatusBadRequest, "MESSAGE_TOO_LONG"},
	{ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{ErrInvalidResetToken, http.StatusUnauthorized, "INVALID_RESET_TOKEN"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrFolderNotConfigured, http.StatusNotFound, "FOLDER_NOT_CONFIGURED"},
	{ErrFeatureDisabled, http.StatusServiceUnavailable, "FEATURE_DISABLED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors match too.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
