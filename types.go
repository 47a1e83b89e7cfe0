package users

import "fmt"

// Logger is the minimal logging surface the package needs. Adapters for
// structured loggers (zap, slog) live with the wiring code.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated account
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Config holds service options. The signing key and thresholds are loaded
// once at startup and passed explicitly; there is no package-level state.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetMaxLoginAttempts() int
	GetMinPasswordLength() int
	GetMinPasswordEntropy() float64
	GetVerificationBaseURL() string
}

type accountIdentity struct {
	id    string
	email string
	role  string
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Role() string {
	return a.role
}

var _ Identity = accountIdentity{}

// IdentityFromAccount captures the token-relevant snapshot of a record.
func IdentityFromAccount(a *Account) Identity {
	if a == nil {
		return nil
	}
	return accountIdentity{
		id:    a.ID.String(),
		email: a.Email,
		role:  string(a.Role),
	}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
