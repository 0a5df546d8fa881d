package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeInvalidCredentials     = "invalid_credentials"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeUserNotFound           = "user_not_found"
	ErrorCodeNotAMember             = "not_a_member"
	ErrorCodeRoleMismatch           = "role_mismatch"
	ErrorCodeForbiddenOrganization  = "forbidden_organization"
	ErrorCodeInvalidTempToken       = "invalid_temp_token_payload"
	ErrorCodeInsufficientPermission = "insufficient_permission"
	ErrorCodeConflict               = "conflict"
	ErrorCodeNotFound               = "not_found"
	ErrorCodeRateLimited            = "rate_limit_exceeded"
	ErrorCodeServerError            = "server_error"
)

// ============================================================================
// AuthError
// ============================================================================

// AuthError is the error type shared by the server (to write responses) and
// the SDK client (to represent them). Two AuthErrors match under errors.Is
// when their status and code are equal, so a decoded response can be
// compared with the sentinels below.
type AuthError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on status and code so descriptions can be customised.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WithDescription returns a copy of e carrying a more specific description.
func (e *AuthError) WithDescription(format string, args ...any) *AuthError {
	return &AuthError{
		StatusCode:  e.StatusCode,
		Code:        e.Code,
		Description: fmt.Sprintf(format, args...),
	}
}

// WriteError writes this AuthError to an HTTP response writer. 401
// responses carry a bearer challenge.
func (e *AuthError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	if e.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate",
			fmt.Sprintf(`Bearer error="invalid_token", error_description=%q`, e.Description))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrInvalidOrExpiredToken is returned when the token signature is
	// invalid, the token is malformed, or it is past expiry.
	ErrInvalidOrExpiredToken = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is missing, invalid or expired",
	}

	// ErrUserNotFound is returned when the token subject no longer resolves
	// to a user.
	ErrUserNotFound = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUserNotFound,
		Description: "user not found",
	}

	// ErrNotAMember is returned when no membership exists for the
	// organization the token names.
	ErrNotAMember = &AuthError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeNotAMember,
		Description: "user is not a member of this organization",
	}

	// ErrRoleMismatch is returned when the membership role no longer matches
	// the token. The client must log in again.
	ErrRoleMismatch = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeRoleMismatch,
		Description: "role has changed, please sign in again",
	}

	// ErrForbiddenOrganization is returned when X-Organization-Id names an
	// organization the user does not belong to.
	ErrForbiddenOrganization = &AuthError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbiddenOrganization,
		Description: "user is not a member of the requested organization",
	}

	// ErrInvalidTempTokenPayload is returned when an authentic selection
	// token has the wrong type or no subject.
	ErrInvalidTempTokenPayload = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidTempToken,
		Description: "invalid organization selection token",
	}

	// ErrInsufficientPermission is returned when the caller's role does not
	// allow the action.
	ErrInsufficientPermission = &AuthError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientPermission,
		Description: "insufficient permission",
	}

	// ErrInvalidRequest is returned when the request body or parameters are
	// malformed.
	ErrInvalidRequest = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is returned when email or password is wrong.
	ErrInvalidCredentials = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}

	ErrConflict = &AuthError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "resource already exists",
	}

	ErrNotFound = &AuthError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	ErrRateLimited = &AuthError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many requests, please try again later",
	}

	// ErrServerError is returned when the service hit an unexpected
	// condition.
	ErrServerError = &AuthError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAuthError creates an AuthError with the given status, code and description.
func NewAuthError(statusCode int, code, description string) *AuthError {
	return &AuthError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *AuthError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &AuthError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: create generic error from status code
	return &AuthError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
