package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"storedesk/internal/apperr"
	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/tenant"

	"go.uber.org/zap"
)

const touchTimeout = 5 * time.Second

// IdentityStore is the slice of the users repository the guard needs.
type IdentityStore interface {
	GetActiveByID(ctx context.Context, id string) (*users.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User  *users.User
	Role  *roles.Role
	Store *stores.Store // nil for the system owner
}

func (p *Principal) StoreID() *string {
	return p.User.StoreID
}

func (p *Principal) RoleSlug() string {
	if p.Role == nil {
		return ""
	}
	return p.Role.Slug
}

// Guard turns an Authorization header into a Principal, applying the token,
// identity, revocation, account and subscription checks in that order.
type Guard struct {
	Tokens     Authenticator
	Identities IdentityStore
	Revoker    Revoker // optional
	Contact    tenant.Contact
	Logger     *zap.SugaredLogger
	Now        func() time.Time
}

func (g *Guard) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// BearerToken extracts the token of a "Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (g *Guard) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, apperr.Unauthenticated(apperr.CodeNoToken, "no token provided")
	}

	claims, err := g.Tokens.ParseAccessToken(token)
	if err != nil {
		return nil, TokenError(err)
	}

	u, err := g.Identities.GetActiveByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, apperr.Unauthenticated(apperr.CodeUserNotFound, "user not found or inactive")
		}
		return nil, apperr.Internal(err)
	}

	if g.revoked(ctx, u, claims.IssuedAt) {
		return nil, apperr.Unauthenticated(apperr.CodeInvalidToken, "session revoked")
	}

	now := g.now()
	if err := tenant.CheckAccess(u, now, g.Contact); err != nil {
		return nil, err
	}

	g.touch(ctx, u.ID, now)

	return &Principal{User: u, Role: u.Role, Store: u.Store}, nil
}

// TokenError maps a token verification failure to its client-facing error.
func TokenError(err error) error {
	if errors.Is(err, ErrExpiredCredential) {
		return apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeTokenExpired, "token expired", err)
	}
	return apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeInvalidToken, "invalid token", err)
}

// revoked fails open: a watermark lookup error is logged and the token honoured.
func (g *Guard) revoked(ctx context.Context, u *users.User, issuedAt time.Time) bool {
	if g.Revoker == nil {
		return false
	}
	storeID := ""
	if u.StoreID != nil {
		storeID = *u.StoreID
	}
	revoked, err := g.Revoker.Revoked(ctx, u.ID, storeID, issuedAt)
	if err != nil {
		g.Logger.Warnw("revocation lookup failed", "user_id", u.ID, "error", err)
		return false
	}
	return revoked
}

func (g *Guard) touch(ctx context.Context, id string, at time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
		defer cancel()
		if err := g.Identities.TouchLastLogin(ctx, id, at); err != nil {
			g.Logger.Warnw("updating last login failed", "user_id", id, "error", err)
		}
	}()
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
