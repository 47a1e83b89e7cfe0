package users

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeUnauthenticated = "UNAUTHENTICATED"
	textCodeBadCredentials  = "INVALID_CREDENTIALS"
	textCodeNotVerified     = "ACCOUNT_NOT_VERIFIED"
	textCodeLocked          = "ACCOUNT_LOCKED"
	textCodeForbidden       = "OPERATION_FORBIDDEN"
	textCodeNotFound        = "ACCOUNT_NOT_FOUND"
	textCodeEmailTaken      = "EMAIL_ALREADY_EXISTS"
	textCodeTokenExpired    = "AUTH_TOKEN_EXPIRED"
	textCodeTokenMalformed  = "AUTH_TOKEN_MALFORMED"
	textCodeInvalidRole     = "INVALID_ROLE"
	textCodeBadVerifyToken  = "INVALID_VERIFICATION_TOKEN"
)

// ErrUnauthenticated is returned when a protected operation is attempted
// without a usable bearer token. Always reported before policy evaluation.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(textCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrIncorrectCredentials deliberately does not distinguish unknown email
// from wrong password.
var ErrIncorrectCredentials = errors.New("Incorrect email or password.", errors.CategoryAuth).
	WithTextCode(textCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotVerified is returned on login for accounts that never
// completed email verification.
var ErrAccountNotVerified = errors.New("Account not verified. Please check your email for the verification link.", errors.CategoryAuth).
	WithTextCode(textCodeNotVerified).
	WithCode(errors.CodeUnauthorized)

// ErrAccountLocked rejects login regardless of password correctness.
var ErrAccountLocked = errors.New("Account locked due to too many failed login attempts.", errors.CategoryConflict).
	WithTextCode(textCodeLocked).
	WithCode(errors.CodeBadRequest)

// ErrOperationForbidden is the policy denial.
var ErrOperationForbidden = errors.New("operation not permitted", errors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrAccountNotFound is returned for unknown or deleted account ids.
var ErrAccountNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode(textCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken is the uniqueness conflict at registration or email update.
var ErrEmailTaken = errors.New("Email already exists", errors.CategoryConflict).
	WithTextCode(textCodeEmailTaken).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRole rejects role literals outside the known set.
var ErrInvalidRole = errors.New("Input should be 'ANONYMOUS', 'AUTHENTICATED', 'MANAGER' or 'ADMIN'", errors.CategoryValidation).
	WithTextCode(textCodeInvalidRole).
	WithCode(http.StatusUnprocessableEntity)

// ErrInvalidVerificationToken rejects verification links whose token does
// not match the account's current address.
var ErrInvalidVerificationToken = errors.New("Invalid verification link", errors.CategoryValidation).
	WithTextCode(textCodeBadVerifyToken).
	WithCode(http.StatusUnprocessableEntity)

// ErrTokenExpired is returned for tokens past their expiry claim.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures and undecodable tokens.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString guards hashing empty passwords.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the bcrypt comparison failure.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(textCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
