package users

import (
	"errors"
	"time"

	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/stores"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("a user with that username already exists")
	ErrDuplicateEmail    = errors.New("a user with that email already exists")
	QueryTimeoutDuration = time.Second * 5
)

const (
	LocaleArabic  = "ar"
	LocaleEnglish = "en"
	LocaleTurkish = "tr"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User is an authenticable identity. StoreID is nil for the system owner.
type User struct {
	ID               string     `json:"id"`
	StoreID          *string    `json:"store_id"`
	RoleID           string     `json:"role_id"`
	Username         string     `json:"username"`
	FullName         string     `json:"full_name"`
	Email            *string    `json:"email"`
	Phone            *string    `json:"phone"`
	IsActive         bool       `json:"is_active"`
	AccountExpiresAt *time.Time `json:"account_expires_at"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	Locale           string     `json:"locale"`
	Theme            string     `json:"theme"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Role  *roles.Role   `json:"role,omitempty"`
	Store *stores.Store `json:"store,omitempty"`
}

// AccountExpired reports whether the account expiry is set and not after now.
func (u *User) AccountExpired(now time.Time) bool {
	return u.AccountExpiresAt != nil && !u.AccountExpiresAt.After(now)
}

type ProfileChanges struct {
	FullName *string
	Email    *string
	Phone    *string
	Locale   *string
	Theme    *string
}
