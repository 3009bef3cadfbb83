// Package account is the self-service side of authentication: login, token
// refresh, logout, password changes and profile edits.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storedesk/internal/apperr"
	"storedesk/internal/audit"
	"storedesk/internal/auth"
	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/identity"
	"storedesk/internal/obs"
	"storedesk/internal/tenant"

	"go.uber.org/zap"
)

type IdentityStore interface {
	GetActiveByID(ctx context.Context, id string) (*users.User, error)
	GetActiveByUsername(ctx context.Context, username string) (*users.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, c users.ProfileChanges) error
}

type Deps struct {
	Users    IdentityStore
	Identity identity.Provider
	Tokens   auth.Authenticator
	Audit    audit.Sink
	Contact  tenant.Contact
	Logger   *zap.SugaredLogger

	// optional
	Revoker auth.Revoker
	Now     func() time.Time
}

type Service struct {
	users    IdentityStore
	identity identity.Provider
	tokens   auth.Authenticator
	audit    audit.Sink
	contact  tenant.Contact
	logger   *zap.SugaredLogger
	revoker  auth.Revoker
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		users:    d.Users,
		identity: d.Identity,
		tokens:   d.Tokens,
		audit:    d.Audit,
		contact:  d.Contact,
		logger:   d.Logger,
		revoker:  d.Revoker,
		now:      d.Now,
	}
}

// Session is what a successful login hands back.
type Session struct {
	User   *users.User    `json:"user"`
	Store  *stores.Store  `json:"store"`
	Tokens auth.TokenPair `json:"tokens"`
}

var errInvalidLogin = apperr.Unauthenticated(apperr.CodeInvalidCredentials, "invalid username or password")

// Login checks the password with the identity provider, then applies the
// same account and subscription gates as every authenticated request.
func (s *Service) Login(ctx context.Context, actor audit.Actor, username, password string) (*Session, error) {
	u, err := s.users.GetActiveByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, errInvalidLogin
		}
		return nil, apperr.Internal(err)
	}

	if err := s.verifyPassword(ctx, u, password); err != nil {
		return nil, err
	}

	now := s.now()
	if err := tenant.CheckAccess(u, now, s.contact); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssueTokenPair(u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warnw("updating last login failed", "user_id", u.ID, "error", err)
	} else {
		u.LastLoginAt = &now
	}

	actor.UserID, actor.StoreID = u.ID, u.StoreID
	s.audit.Record(actor.Entry("login", "auth", &u.ID))

	return &Session{User: u, Store: u.Store, Tokens: pair}, nil
}

func (s *Service) verifyPassword(ctx context.Context, u *users.User, password string) error {
	id, err := s.identity.VerifyPassword(ctx, identity.LoginFor(u.Username, u.Email), password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return errInvalidLogin
		}
		return apperr.Internal(fmt.Errorf("verify password: %w", err))
	}
	if id != u.ID {
		s.logger.Errorw("identity provider returned a different id", "user_id", u.ID, "provider_id", id)
		return errInvalidLogin
	}
	return nil
}

// Refresh trades a refresh token for a new pair. The identity must still be
// active and the token must not predate a revocation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return auth.TokenPair{}, auth.TokenError(err)
	}

	u, err := s.users.GetActiveByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return auth.TokenPair{}, apperr.Unauthenticated(apperr.CodeUserNotFound, "user not found or inactive")
		}
		return auth.TokenPair{}, apperr.Internal(err)
	}

	if s.revoker != nil {
		storeID := ""
		if u.StoreID != nil {
			storeID = *u.StoreID
		}
		revoked, err := s.revoker.Revoked(ctx, u.ID, storeID, claims.IssuedAt)
		if err != nil {
			s.logger.Warnw("revocation lookup failed", "user_id", u.ID, "error", err)
		} else if revoked {
			return auth.TokenPair{}, apperr.Unauthenticated(apperr.CodeInvalidToken, "session revoked")
		}
	}

	pair, err := s.tokens.IssueTokenPair(u.ID)
	if err != nil {
		return auth.TokenPair{}, apperr.Internal(err)
	}
	return pair, nil
}

// Logout invalidates every token of the principal issued up to now.
func (s *Service) Logout(ctx context.Context, p *auth.Principal, actor audit.Actor) error {
	if err := s.revokeIdentity(ctx, p.User.ID); err != nil {
		return err
	}
	s.audit.Record(actor.Entry("logout", "auth", &p.User.ID))
	return nil
}

func (s *Service) revokeIdentity(ctx context.Context, id string) error {
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.RevokeIdentity(ctx, id, s.now()); err != nil {
		return apperr.Internal(fmt.Errorf("revoke sessions: %w", err))
	}
	return nil
}

type Profile struct {
	User  *users.User   `json:"user"`
	Role  *roles.Role   `json:"role"`
	Store *stores.Store `json:"store"`
}

func (s *Service) Me(p *auth.Principal) *Profile {
	return &Profile{User: p.User, Role: p.Role, Store: p.Store}
}

// ChangePassword requires the current password and signs the caller out
// everywhere once the new one is set.
func (s *Service) ChangePassword(ctx context.Context, p *auth.Principal, actor audit.Actor, current, next string) error {
	if err := s.verifyPassword(ctx, p.User, current); err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			return apperr.Unauthenticated(apperr.CodeInvalidCredentials, "current password is incorrect")
		}
		return err
	}

	if err := s.identity.UpdatePassword(ctx, p.User.ID, next); err != nil {
		if errors.Is(err, identity.ErrPasswordTooLong) {
			return apperr.Validation("password must be at most 72 bytes")
		}
		return apperr.Internal(fmt.Errorf("update password: %w", err))
	}

	if err := s.revokeIdentity(ctx, p.User.ID); err != nil {
		s.logger.Warnw("password changed but old sessions were not revoked", "user_id", p.User.ID, "error", err)
	}

	s.audit.Record(actor.Entry("change_password", "auth", &p.User.ID))
	return nil
}

// UpdateProfile edits the caller's own profile. An email change moves the
// provider login along with it.
func (s *Service) UpdateProfile(ctx context.Context, p *auth.Principal, actor audit.Actor, c users.ProfileChanges) (*users.User, error) {
	if c == (users.ProfileChanges{}) {
		return nil, apperr.Validation("no fields to update")
	}

	u := p.User
	oldLogin := identity.LoginFor(u.Username, u.Email)
	loginMoved := false

	if c.Email != nil && !sameEmail(u.Email, *c.Email) {
		taken, err := s.users.EmailExists(ctx, *c.Email)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			return nil, apperr.Conflict("email already exists")
		}

		newLogin := identity.LoginFor(u.Username, c.Email)
		if err := s.identity.UpdateLogin(ctx, u.ID, newLogin); err != nil {
			if errors.Is(err, identity.ErrLoginTaken) {
				return nil, apperr.Conflict("email already exists")
			}
			return nil, apperr.Internal(fmt.Errorf("update login: %w", err))
		}
		loginMoved = true
	}

	if err := s.users.UpdateProfile(ctx, u.ID, c); err != nil {
		if loginMoved {
			s.restoreLogin(ctx, u.ID, oldLogin)
		}
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, apperr.Wrap(apperr.KindConflict, apperr.CodeConflict, "email already exists", err)
		}
		return nil, apperr.Internal(err)
	}

	updated, err := s.users.GetActiveByID(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	entry := actor.Entry("update_profile", "user", &u.ID)
	entry.OldData = audit.Snapshot(u)
	entry.NewData = audit.Snapshot(updated)
	s.audit.Record(entry)
	return updated, nil
}

func (s *Service) restoreLogin(ctx context.Context, id, login string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.identity.UpdateLogin(ctx, id, login); err != nil {
		obs.CompensationFailed("update_profile", "restore_login")
		s.logger.Errorw("restoring provider login failed, manual cleanup required",
			"alert", "compensation_failed", "user_id", id, "login", login, "error", err)
	}
}

func sameEmail(current *string, next string) bool {
	return current != nil && strings.EqualFold(strings.TrimSpace(*current), strings.TrimSpace(next))
}
