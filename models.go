package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's privilege tier
type Role = string

const (
	// RoleAnonymous is the tier of unauthenticated callers; never persisted
	RoleAnonymous Role = "ANONYMOUS"
	// RoleAuthenticated is the default tier assigned at self-registration
	RoleAuthenticated Role = "AUTHENTICATED"
	// RoleManager may list accounts
	RoleManager Role = "MANAGER"
	// RoleAdmin may create, read, mutate, promote and delete any account
	RoleAdmin Role = "ADMIN"
)

// Account is the account model
type Account struct {
	bun.BaseModel      `bun:"table:accounts,alias:acc"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role               Role       `bun:"role,notnull" json:"role,omitempty"`
	Email              string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Nickname           string     `bun:"nickname" json:"nickname,omitempty"`
	FirstName          string     `bun:"first_name" json:"first_name,omitempty"`
	LastName           string     `bun:"last_name" json:"last_name,omitempty"`
	Phone              string     `bun:"phone_number" json:"phone_number,omitempty"`
	GithubProfileURL   string     `bun:"github_profile_url" json:"github_profile_url,omitempty"`
	LinkedinProfileURL string     `bun:"linkedin_profile_url" json:"linkedin_profile_url,omitempty"`
	PasswordHash       string     `bun:"password_hash" json:"-"`
	EmailVerified      bool       `bun:"email_verified" json:"email_verified"`
	IsLocked           bool       `bun:"is_locked" json:"is_locked"`
	IsProfessional     bool       `bun:"is_professional" json:"is_professional"`
	FailedLoginCount   int        `bun:"failed_login_attempts" json:"failed_login_attempts,omitempty"`
	LastFailedLoginAt  *time.Time `bun:"last_failed_login_at" json:"last_failed_login_at,omitempty"`
	LoggedInAt         *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	VerifiedAt         *time.Time `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	PromotedAt         *time.Time `bun:"promoted_at,nullzero" json:"promoted_at,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AccountStatus is the derived lifecycle state of an account.
type AccountStatus = string

const (
	// StatusPending means the email address has not been verified yet
	StatusPending AccountStatus = "pending"
	// StatusActive means the account may authenticate
	StatusActive AccountStatus = "active"
	// StatusLocked means the failed-login threshold was reached
	StatusLocked AccountStatus = "locked"
	// StatusArchived means the account was deleted; terminal
	StatusArchived AccountStatus = "archived"
)

// Status derives the lifecycle state from the persisted flags. Lock wins
// over verification so that a locked-but-verified account cannot log in.
func (a *Account) Status() AccountStatus {
	switch {
	case a == nil:
		return ""
	case a.DeletedAt != nil:
		return StatusArchived
	case a.IsLocked:
		return StatusLocked
	case !a.EmailVerified:
		return StatusPending
	default:
		return StatusActive
	}
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool {
	return a.Status() == StatusActive
}

// IsArchived reports whether the account was deleted.
func (a *Account) IsArchived() bool {
	return a.Status() == StatusArchived
}

// FullName joins the profile name fields, falling back to the nickname.
func (a *Account) FullName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.LastName != "":
		return a.LastName
	default:
		return a.Nickname
	}
}

// PublicAccount is the wire representation of an account. It never carries
// the password hash.
type PublicAccount struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Role               Role       `json:"role"`
	Nickname           string     `json:"nickname,omitempty"`
	FirstName          string     `json:"first_name,omitempty"`
	LastName           string     `json:"last_name,omitempty"`
	Phone              string     `json:"phone_number,omitempty"`
	GithubProfileURL   string     `json:"github_profile_url,omitempty"`
	LinkedinProfileURL string     `json:"linkedin_profile_url,omitempty"`
	EmailVerified      bool       `json:"email_verified"`
	IsLocked           bool       `json:"is_locked"`
	IsProfessional     bool       `json:"is_professional"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// Public strips credentials and internal counters from the record.
func (a *Account) Public() *PublicAccount {
	if a == nil {
		return nil
	}
	return &PublicAccount{
		ID:                 a.ID.String(),
		Email:              a.Email,
		Role:               a.Role,
		Nickname:           a.Nickname,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		Phone:              a.Phone,
		GithubProfileURL:   a.GithubProfileURL,
		LinkedinProfileURL: a.LinkedinProfileURL,
		EmailVerified:      a.EmailVerified,
		IsLocked:           a.IsLocked,
		IsProfessional:     a.IsProfessional,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// AccountPage is the paginated list envelope.
type AccountPage struct {
	Items []*PublicAccount `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// NewAccountPage wraps records in the response envelope.
func NewAccountPage(records []*Account, total, page, size int) *AccountPage {
	items := make([]*PublicAccount, 0, len(records))
	for _, r := range records {
		items = append(items, r.Public())
	}
	return &AccountPage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}
}
