package users

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TrackFailedLoginSQL bumps the failure counter and derives the lock flag in
// a single statement so concurrent failed logins never under-count.
var TrackFailedLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"failed_login_attempts" = "failed_login_attempts" + 1,
	"is_locked" = ("failed_login_attempts" + 1 >= ?),
	"last_failed_login_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var TrackSuccessfulLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"failed_login_attempts" = 0,
	"last_failed_login_at" = NULL,
	"loggedin_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var MarkEmailVerifiedSQL = `UPDATE "accounts" AS "acc"
SET
	"email_verified" = TRUE,
	"verified_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// SetProfessionalSQL only touches rows that are not yet professional, so
// an affected row is the authoritative signal that this call did the
// upgrade. Concurrent promoters race on the guard; exactly one wins.
var SetProfessionalSQL = `UPDATE "accounts" AS "acc"
SET
	"is_professional" = TRUE,
	"promoted_at" = COALESCE("promoted_at", ?)
WHERE
	"acc"."deleted_at" IS NULL
AND "acc"."is_professional" = FALSE
AND (
	"acc"."id" = ?
) RETURNING *;`

var UnlockAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"is_locked" = FALSE,
	"failed_login_attempts" = 0,
	"last_failed_login_at" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// Accounts is the account lifecycle store.
type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, record *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	EmailTakenTx(ctx context.Context, tx bun.IDB, email string, excludeID uuid.UUID) (bool, error)

	TrackFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int) (*Account, error)
	TrackFailedLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, maxAttempts int) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) (*Account, error)
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)

	MarkEmailVerified(ctx context.Context, id uuid.UUID) (*Account, error)
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)
	SetProfessional(ctx context.Context, id uuid.UUID) (*Account, bool, error)
	SetProfessionalTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, bool, error)
	Unlock(ctx context.Context, id uuid.UUID) (*Account, error)
	UnlockTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)

	UpdateFields(ctx context.Context, record *Account) (*Account, error)
	UpdateFieldsTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	ListPage(ctx context.Context, page, size int) ([]*Account, int, error)
	ListPageTx(ctx context.Context, tx bun.IDB, page, size int) ([]*Account, int, error)
}

type accounts struct {
	repository.Repository[*Account]
	db    *bun.DB
	clock func() time.Time
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

type AccountsOption func(*accounts)

// WithAccountsClock injects a custom clock (useful for tests).
func WithAccountsClock(clock func() time.Time) AccountsOption {
	return func(a *accounts) {
		if clock != nil {
			a.clock = clock
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

func (a *accounts) Register(ctx context.Context, record *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, record)
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	return a.EmailTakenTx(ctx, a.db, email, excludeID)
}

func (a *accounts) EmailTakenTx(ctx context.Context, tx bun.IDB, email string, excludeID uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email))

	if excludeID != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excludeID)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (a *accounts) TrackFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int) (*Account, error) {
	return a.TrackFailedLoginTx(ctx, a.db, id, maxAttempts)
}

func (a *accounts) TrackFailedLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, maxAttempts int) (*Account, error) {
	return a.rawOne(ctx, tx, TrackFailedLoginSQL, maxAttempts, a.clock(), id.String())
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.TrackSuccessfulLoginTx(ctx, a.db, id)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	return a.rawOne(ctx, tx, TrackSuccessfulLoginSQL, a.clock(), id.String())
}

func (a *accounts) MarkEmailVerified(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.MarkEmailVerifiedTx(ctx, a.db, id)
}

func (a *accounts) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	return a.rawOne(ctx, tx, MarkEmailVerifiedSQL, a.clock(), id.String())
}

func (a *accounts) SetProfessional(ctx context.Context, id uuid.UUID) (*Account, bool, error) {
	return a.SetProfessionalTx(ctx, a.db, id)
}

// SetProfessionalTx reports flipped=true only when this call performed the
// upgrade. A zero-row update means the account is already professional or
// gone; the follow-up read disambiguates.
func (a *accounts) SetProfessionalTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, bool, error) {
	record, err := a.rawOne(ctx, tx, SetProfessionalSQL, a.clock(), id.String())
	if err == nil {
		return record, true, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	record, err = a.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, false, err
	}

	return record, false, nil
}

func (a *accounts) Unlock(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.UnlockTx(ctx, a.db, id)
}

func (a *accounts) UnlockTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	return a.rawOne(ctx, tx, UnlockAccountSQL, id.String())
}

func (a *accounts) UpdateFields(ctx context.Context, record *Account) (*Account, error) {
	return a.UpdateFieldsTx(ctx, a.db, record)
}

// UpdateFieldsTx applies only the non-zero fields in record; unspecified
// fields keep their stored values.
func (a *accounts) UpdateFieldsTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	return a.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateSkipZeroValues(),
	)
}

func (a *accounts) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return a.DeleteByIDTx(ctx, a.db, id)
}

// DeleteByIDTx soft-deletes the record; the id is unresolvable on all
// subsequent reads because every query excludes deleted rows.
func (a *accounts) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *accounts) ListPage(ctx context.Context, page, size int) ([]*Account, int, error) {
	return a.ListPageTx(ctx, a.db, page, size)
}

func (a *accounts) ListPageTx(ctx context.Context, tx bun.IDB, page, size int) ([]*Account, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}

	records := []*Account{}
	total, err := tx.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Limit(size).
		Offset((page - 1) * size).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// DefaultPageSize bounds unpaginated list requests.
const DefaultPageSize = 25

func (a *accounts) rawOne(ctx context.Context, tx bun.IDB, sql string, args ...any) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleAuthenticated
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// NormalizeEmail lower-cases and trims an email identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmail reports whether the string parses as an address.
func IsEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// IsUUID reports whether the string parses as a UUID.
func IsUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
