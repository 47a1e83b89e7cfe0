package users_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAccounts stubs the account store. The embedded interface satisfies the
// repository surface; calling an unstubbed method panics, which keeps tests
// honest about what they exercise.
type MockAccounts struct {
	mock.Mock
	users.Accounts
}

func (m *MockAccounts) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*users.Account, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*users.Account, error) {
	args := m.Called(ctx, email)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) EmailTakenTx(ctx context.Context, tx bun.IDB, email string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) RegisterTx(ctx context.Context, tx bun.IDB, record *users.Account) (*users.Account, error) {
	args := m.Called(ctx, record)
	if out, ok := args.Get(0).(*users.Account); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *users.Account, criteria ...repository.InsertCriteria) (*users.Account, error) {
	args := m.Called(ctx, record)
	if out, ok := args.Get(0).(*users.Account); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) TrackFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int) (*users.Account, error) {
	args := m.Called(ctx, id, maxAttempts)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) (*users.Account, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) MarkEmailVerified(ctx context.Context, id uuid.UUID) (*users.Account, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) SetProfessional(ctx context.Context, id uuid.UUID) (*users.Account, bool, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockAccounts) Unlock(ctx context.Context, id uuid.UUID) (*users.Account, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*users.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) UpdateFields(ctx context.Context, record *users.Account) (*users.Account, error) {
	args := m.Called(ctx, record)
	if out, ok := args.Get(0).(*users.Account); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) ListPage(ctx context.Context, page, size int) ([]*users.Account, int, error) {
	args := m.Called(ctx, page, size)
	if records, ok := args.Get(0).([]*users.Account); ok {
		return records, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

// MockRepositoryManager stubs the repository manager. RunInTx invokes the
// callback with a zero transaction so Tx-variant stubs on MockAccounts get
// exercised.
type MockRepositoryManager struct {
	mock.Mock
	accounts *MockAccounts
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{accounts: &MockAccounts{}}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() users.Accounts {
	return m.accounts
}

// MockNotifier records every dispatched notification.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n users.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockActivitySink records activity events.
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event users.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockLogger implements users.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockIdentity implements users.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockMailSender captures rendered emails instead of dialing SMTP.
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(to, subject, htmlBody string) error {
	args := m.Called(to, subject, htmlBody)
	return args.Error(0)
}

// testConfig is a minimal users.Config for service construction.
type testConfig struct {
	signingKey          string
	tokenExpiration     int
	maxLoginAttempts    int
	minPasswordLength   int
	minPasswordEntropy  float64
	verificationBaseURL string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:          "test-signing-key",
		tokenExpiration:     24,
		maxLoginAttempts:    5,
		minPasswordLength:   8,
		minPasswordEntropy:  0,
		verificationBaseURL: "http://localhost:8080",
	}
}

func (c *testConfig) GetSigningKey() string          { return c.signingKey }
func (c *testConfig) GetSigningMethod() string       { return "HS256" }
func (c *testConfig) GetContextKey() string          { return "claims" }
func (c *testConfig) GetTokenExpiration() int        { return c.tokenExpiration }
func (c *testConfig) GetTokenLookup() string         { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string          { return "Bearer" }
func (c *testConfig) GetIssuer() string              { return "test-issuer" }
func (c *testConfig) GetAudience() []string          { return nil }
func (c *testConfig) GetMaxLoginAttempts() int       { return c.maxLoginAttempts }
func (c *testConfig) GetMinPasswordLength() int      { return c.minPasswordLength }
func (c *testConfig) GetMinPasswordEntropy() float64 { return c.minPasswordEntropy }
func (c *testConfig) GetVerificationBaseURL() string { return c.verificationBaseURL }
