package tenant

import (
	"time"

	"storedesk/internal/apperr"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
)

// Contact is where a locked-out tenant is told to go for renewal.
type Contact struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
}

// Valid reports whether a store currently grants access: it must be active
// and at least one of its subscription or trial end must lie strictly after now.
func Valid(s *stores.Store, now time.Time) bool {
	if s == nil || s.Status != stores.StatusActive {
		return false
	}
	if s.SubscriptionEndsAt != nil && s.SubscriptionEndsAt.After(now) {
		return true
	}
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// CheckAccess applies the account and subscription gates to a loaded identity.
// Identities without a store (the system owner) only face the account gate.
func CheckAccess(u *users.User, now time.Time, contact Contact) error {
	if u.AccountExpired(now) {
		return apperr.Forbidden(apperr.CodeAccountExpired,
			"your account has expired, please contact the administrator").
			WithDetail("contact", contact)
	}

	if u.StoreID == nil {
		return nil
	}

	if !Valid(u.Store, now) {
		return apperr.Forbidden(apperr.CodeSubscriptionExpired,
			"your store subscription has expired, please renew to continue").
			WithDetail("contact", contact)
	}
	return nil
}
