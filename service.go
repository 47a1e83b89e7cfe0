package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

// Caller is the authenticated principal performing an operation. The zero
// value is an anonymous caller.
type Caller struct {
	ID   string
	Role Role
}

// IsAnonymous reports whether no bearer identity is present.
func (c Caller) IsAnonymous() bool {
	return c.ID == ""
}

// Actor converts the caller into an activity actor reference.
func (c Caller) Actor() ActorRef {
	if c.IsAnonymous() {
		return ActorRef{Type: "anonymous"}
	}
	return ActorRef{ID: c.ID, Type: "user"}
}

// CallerFromClaims lifts validated token claims into a Caller.
func CallerFromClaims(claims AuthClaims) Caller {
	if claims == nil {
		return Caller{}
	}
	return Caller{
		ID:   claims.AccountID(),
		Role: Role(claims.Role()),
	}
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email     string
	Password  string
	Nickname  string
	FirstName string
	LastName  string
	Phone     string
}

// CreateAccountInput is the admin account-creation payload. When Password is
// empty the record gets an unguessable placeholder hash; the owner has to
// complete verification before they can sign in.
type CreateAccountInput struct {
	Email              string
	Password           string
	Role               Role
	Nickname           string
	FirstName          string
	LastName           string
	Phone              string
	GithubProfileURL   string
	LinkedinProfileURL string
	EmailVerified      bool
}

// UpdateAccountInput carries admin field updates. Nil pointers leave the
// stored value untouched.
type UpdateAccountInput struct {
	Email              *string
	Role               *Role
	Nickname           *string
	FirstName          *string
	LastName           *string
	Phone              *string
	GithubProfileURL   *string
	LinkedinProfileURL *string
	Password           *string
}

// ProfileUpdateInput carries owner-initiated profile updates. Role and email
// changes stay admin-only.
type ProfileUpdateInput struct {
	Nickname           *string
	FirstName          *string
	LastName           *string
	Phone              *string
	GithubProfileURL   *string
	LinkedinProfileURL *string
	Password           *string
}

// LoginResult is the successful authentication payload.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AccountService implements account management on top of the repository,
// policy table, token service and notifier.
type AccountService struct {
	repo         RepositoryManager
	policy       *Policy
	tokens       TokenService
	stateMachine AccountStateMachine
	notifier     Notifier
	activitySink ActivitySink
	logger       Logger
	now          func() time.Time

	maxLoginAttempts    int
	minPasswordLength   int
	minPasswordEntropy  float64
	verificationBaseURL string
}

// NewAccountService wires the service from configuration; use the With*
// builders to swap collaborators.
func NewAccountService(repo RepositoryManager, opts Config) *AccountService {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &AccountService{
		repo:                repo,
		policy:              NewPolicy(),
		tokens:              tokenService,
		stateMachine:        NewAccountStateMachine(repo.Accounts()),
		notifier:            noopNotifier{},
		activitySink:        noopActivitySink{},
		logger:              defLogger{},
		now:                 time.Now,
		maxLoginAttempts:    opts.GetMaxLoginAttempts(),
		minPasswordLength:   opts.GetMinPasswordLength(),
		minPasswordEntropy:  opts.GetMinPasswordEntropy(),
		verificationBaseURL: opts.GetVerificationBaseURL(),
	}
}

// WithLogger replaces the logger.
func (s *AccountService) WithLogger(logger Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNotifier configures the transactional notification sink.
func (s *AccountService) WithNotifier(n Notifier) *AccountService {
	s.notifier = normalizeNotifier(n)
	return s
}

// WithActivitySink configures an ActivitySink for emitting account events.
func (s *AccountService) WithActivitySink(sink ActivitySink) *AccountService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithPolicy replaces the access decision table.
func (s *AccountService) WithPolicy(p *Policy) *AccountService {
	if p != nil {
		s.policy = p
	}
	return s
}

// WithTokenService replaces the bearer token issuer.
func (s *AccountService) WithTokenService(ts TokenService) *AccountService {
	if ts != nil {
		s.tokens = ts
	}
	return s
}

// WithStateMachine replaces the lifecycle state machine.
func (s *AccountService) WithStateMachine(sm AccountStateMachine) *AccountService {
	if sm != nil {
		s.stateMachine = sm
	}
	return s
}

// WithClock injects a custom clock, useful for tests.
func (s *AccountService) WithClock(clock func() time.Time) *AccountService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TokenService returns the token issuer used by this service.
func (s *AccountService) TokenService() TokenService {
	return s.tokens
}

// Register creates an account in the AUTHENTICATED role and dispatches the
// verification email. The record starts unverified; login is rejected until
// the owner follows the emailed link.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	email := NormalizeEmail(input.Email)
	if !IsEmail(email) {
		return nil, goerrors.New("invalid email address", goerrors.CategoryValidation).
			WithCode(http.StatusUnprocessableEntity)
	}

	if err := s.validatePassword(input.Password); err != nil {
		return nil, err
	}

	record := &Account{
		Email:     email,
		Role:      RoleAuthenticated,
		Nickname:  input.Nickname,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := s.repo.Accounts().EmailTakenTx(ctx, tx, email, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		hash, err := HashPassword(input.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		record.PasswordHash = hash

		record, err = s.repo.Accounts().RegisterTx(ctx, tx, record)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     ActorRef{ID: record.ID.String(), Type: "user"},
		AccountID: record.ID.String(),
	})

	s.sendVerification(ctx, record)

	return record, nil
}

// Login verifies email/password credentials and issues a bearer token.
// Failed attempts are counted atomically; reaching the threshold locks the
// account so later attempts are rejected before the password is checked.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	record, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrIncorrectCredentials
		}
		return nil, err
	}

	if record.Status() == StatusLocked {
		s.emitLoginFailure(ctx, record, "account locked")
		return nil, ErrAccountLocked
	}

	if record.Status() == StatusPending {
		s.emitLoginFailure(ctx, record, "account not verified")
		return nil, ErrAccountNotVerified
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		tracked, trackErr := s.repo.Accounts().TrackFailedLogin(ctx, record.ID, s.maxLoginAttempts)
		if trackErr != nil {
			s.logger.Error("Login failed to track failed attempt for %s: %v", record.ID, trackErr)
		}

		s.emitLoginFailure(ctx, record, "incorrect password")

		if tracked != nil && tracked.IsLocked {
			s.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventAccountLocked,
				Actor:     ActorRef{Type: "system"},
				AccountID: record.ID.String(),
				Metadata: map[string]any{
					"failed_attempts": tracked.FailedLoginCount,
				},
			})
		}

		return nil, ErrIncorrectCredentials
	}

	record, err = s.repo.Accounts().TrackSuccessfulLogin(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(IdentityFromAccount(record))
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: record.ID.String(), Type: "user"},
		AccountID: record.ID.String(),
	})

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// VerifyEmail confirms ownership of the address using the emailed token and
// activates the account. Verifying an already-active account is a no-op.
func (s *AccountService) VerifyEmail(ctx context.Context, id, token string) (*Account, error) {
	record, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	expected, err := s.VerificationToken(record)
	if err != nil {
		return nil, err
	}
	if token == "" || token != expected {
		return nil, ErrInvalidVerificationToken
	}

	if record.EmailVerified {
		return record, nil
	}

	record, err = s.stateMachine.Transition(ctx, ActorRef{ID: record.ID.String(), Type: "user"}, record, StatusActive,
		WithTransitionReason("email verification"),
	)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor:     ActorRef{ID: record.ID.String(), Type: "user"},
		AccountID: record.ID.String(),
	})

	s.notify(ctx, record, NotificationVerified, "")

	return record, nil
}

// Get returns a single account. Owners may read themselves; any other read
// is admin-only and the policy denial is reported before existence is
// revealed.
func (s *AccountService) Get(ctx context.Context, caller Caller, id string) (*Account, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	op := OpReadUser
	if caller.ID == id {
		op = OpReadUserSelf
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, id, op); err != nil {
		return nil, err
	}

	return s.getByID(ctx, id)
}

// List returns a page of accounts for managers and admins.
func (s *AccountService) List(ctx context.Context, caller Caller, page, size int) (*AccountPage, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, "", OpListUsers); err != nil {
		return nil, err
	}

	if size < 1 || size > DefaultPageSize {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	records, total, err := s.repo.Accounts().ListPage(ctx, page, size)
	if err != nil {
		return nil, err
	}

	return NewAccountPage(records, total, page, size), nil
}

// CreateAccount provisions an account on behalf of an admin.
func (s *AccountService) CreateAccount(ctx context.Context, caller Caller, input CreateAccountInput) (*Account, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, "", OpCreateUser); err != nil {
		return nil, err
	}

	email := NormalizeEmail(input.Email)
	if !IsEmail(email) {
		return nil, goerrors.New("invalid email address", goerrors.CategoryValidation).
			WithCode(http.StatusUnprocessableEntity)
	}

	role := input.Role
	if role == "" {
		role = RoleAuthenticated
	}
	if !IsAssignableRole(role) {
		return nil, ErrInvalidRole
	}

	record := &Account{
		Email:              email,
		Role:               role,
		Nickname:           input.Nickname,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Phone:              input.Phone,
		GithubProfileURL:   input.GithubProfileURL,
		LinkedinProfileURL: input.LinkedinProfileURL,
		EmailVerified:      input.EmailVerified,
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := s.repo.Accounts().EmailTakenTx(ctx, tx, email, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		if input.Password != "" {
			if err := s.validatePassword(input.Password); err != nil {
				return err
			}
			hash, err := HashPassword(input.Password)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
			record.PasswordHash = hash
		} else {
			record.PasswordHash = RandomPasswordHash()
		}

		record, err = s.repo.Accounts().CreateTx(ctx, tx, record)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account creation transaction failed")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     caller.Actor(),
		AccountID: record.ID.String(),
		Metadata:  map[string]any{"created_by": caller.ID},
	})

	if !record.EmailVerified {
		s.sendVerification(ctx, record)
	}

	return record, nil
}

// Update applies admin field updates to any account.
func (s *AccountService) Update(ctx context.Context, caller Caller, id string, input UpdateAccountInput) (*Account, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, id, OpUpdateUserField); err != nil {
		return nil, err
	}

	record, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil && !IsAssignableRole(*input.Role) {
		return nil, ErrInvalidRole
	}

	patch := &Account{ID: record.ID}
	if input.Role != nil {
		patch.Role = *input.Role
	}

	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if !IsEmail(email) {
			return nil, goerrors.New("invalid email address", goerrors.CategoryValidation).
				WithCode(http.StatusUnprocessableEntity)
		}
		if email != record.Email {
			taken, err := s.repo.Accounts().EmailTaken(ctx, email, record.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrEmailTaken
			}
			patch.Email = email
		}
	}

	if input.Password != nil {
		if err := s.validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		patch.PasswordHash = hash
	}

	applyProfilePatch(patch, input.Nickname, input.FirstName, input.LastName, input.Phone, input.GithubProfileURL, input.LinkedinProfileURL)

	return s.repo.Accounts().UpdateFields(ctx, patch)
}

// UpdateOwnProfile applies the caller's profile changes to their own record.
func (s *AccountService) UpdateOwnProfile(ctx context.Context, caller Caller, input ProfileUpdateInput) (*Account, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, caller.ID, OpUpdateOwnProfile); err != nil {
		return nil, err
	}

	record, err := s.getByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	patch := &Account{ID: record.ID}

	if input.Password != nil {
		if err := s.validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		patch.PasswordHash = hash
	}

	applyProfilePatch(patch, input.Nickname, input.FirstName, input.LastName, input.Phone, input.GithubProfileURL, input.LinkedinProfileURL)

	return s.repo.Accounts().UpdateFields(ctx, patch)
}

// Delete archives the account. The id stops resolving on every read and the
// archived state is terminal.
func (s *AccountService) Delete(ctx context.Context, caller Caller, id string) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, id, OpDeleteUser); err != nil {
		return err
	}

	record, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.stateMachine.Transition(ctx, caller.Actor(), record, StatusArchived,
		WithTransitionReason("account deletion"),
	); err != nil {
		return err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		Actor:     caller.Actor(),
		AccountID: record.ID.String(),
	})

	return nil
}

// Promote upgrades the account to the professional tier. Promotion is
// idempotent and the congratulation email goes out only on the first
// upgrade.
func (s *AccountService) Promote(ctx context.Context, caller Caller, id string) (*Account, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, id, OpPromoteUser); err != nil {
		return nil, err
	}

	record, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	record, flipped, err := s.repo.Accounts().SetProfessional(ctx, record.ID)
	if err != nil {
		return nil, s.notFound(err, id)
	}

	// The store tells us whether this call performed the upgrade, so two
	// racing promoters cannot both send the congratulation email.
	if flipped {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventAccountPromoted,
			Actor:     caller.Actor(),
			AccountID: record.ID.String(),
		})
		s.notify(ctx, record, NotificationPromoted, "")
	}

	return record, nil
}

// Unlock clears the failed-login counter and lock flag so the owner can
// attempt authentication again.
func (s *AccountService) Unlock(ctx context.Context, caller Caller, id string) (*Account, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	if err := s.policy.Authorize(caller.Role, caller.ID, id, OpUnlockUser); err != nil {
		return nil, err
	}

	record, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.Status() != StatusLocked {
		return record, nil
	}

	return s.stateMachine.Transition(ctx, caller.Actor(), record, StatusActive,
		WithTransitionReason("manual unlock"),
	)
}

// VerificationToken derives the deterministic verification token for the
// record. The token binds the account id to the address so that changing
// either invalidates outstanding links; nothing is stored server-side.
func (s *AccountService) VerificationToken(account *Account) (string, error) {
	if account == nil {
		return "", goerrors.New("account must not be nil", goerrors.CategoryInternal)
	}

	id, err := hashid.NewUUID(account.ID.String() + ":" + account.Email)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive verification token")
	}

	return id.String(), nil
}

// VerificationURL builds the absolute link embedded in the verification
// email.
func (s *AccountService) VerificationURL(account *Account) (string, error) {
	token, err := s.VerificationToken(account)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/verify-email/%s/%s", s.verificationBaseURL, account.ID, token), nil
}

func (s *AccountService) validatePassword(password string) error {
	if len(password) < s.minPasswordLength {
		return goerrors.New(
			fmt.Sprintf("String should have at least %d characters", s.minPasswordLength),
			goerrors.CategoryValidation,
		).WithCode(http.StatusUnprocessableEntity)
	}

	if s.minPasswordEntropy > 0 {
		if err := passwordvalidator.Validate(password, s.minPasswordEntropy); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "password is too weak").
				WithCode(http.StatusUnprocessableEntity)
		}
	}

	return nil
}

// getByID resolves an account, converting repository misses and unparsable
// ids to the canonical not-found error.
func (s *AccountService) getByID(ctx context.Context, id string) (*Account, error) {
	if !IsUUID(id) {
		return nil, ErrAccountNotFound.WithMetadata(map[string]any{"id": id})
	}

	record, err := s.repo.Accounts().GetByID(ctx, id)
	if err != nil {
		return nil, s.notFound(err, id)
	}

	return record, nil
}

func (s *AccountService) notFound(err error, id string) error {
	if isNotFound(err) {
		return ErrAccountNotFound.WithMetadata(map[string]any{"id": id})
	}
	return err
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func (s *AccountService) sendVerification(ctx context.Context, record *Account) {
	url, err := s.VerificationURL(record)
	if err != nil {
		s.logger.Error("failed to build verification URL for %s: %v", record.ID, err)
		return
	}
	s.notify(ctx, record, NotificationVerificationRequested, url)
}

func (s *AccountService) notify(ctx context.Context, record *Account, kind NotificationKind, verificationURL string) {
	err := s.notifier.Notify(ctx, Notification{
		Kind:            kind,
		AccountID:       record.ID.String(),
		Email:           record.Email,
		Name:            record.FullName(),
		VerificationURL: verificationURL,
		OccurredAt:      s.now(),
	})
	if err != nil {
		s.logger.Warn("notification dispatch failed kind=%s account=%s: %v", kind, record.ID, err)
	}
}

func (s *AccountService) emitLoginFailure(ctx context.Context, record *Account, reason string) {
	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		AccountID: record.ID.String(),
		Metadata:  map[string]any{"reason": reason},
	})
}

func (s *AccountService) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	sink := normalizeActivitySink(s.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func applyProfilePatch(patch *Account, nickname, firstName, lastName, phone, github, linkedin *string) {
	if nickname != nil {
		patch.Nickname = *nickname
	}
	if firstName != nil {
		patch.FirstName = *firstName
	}
	if lastName != nil {
		patch.LastName = *lastName
	}
	if phone != nil {
		patch.Phone = *phone
	}
	if github != nil {
		patch.GithubProfileURL = *github
	}
	if linkedin != nil {
		patch.LinkedinProfileURL = *linkedin
	}
}
