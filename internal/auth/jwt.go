package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredCredential = errors.New("credential expired")
	ErrInvalidCredential = errors.New("credential invalid")
)

type TokenConfig struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// Claims is what a verified token tells us: who, and when it was minted.
type Claims struct {
	IdentityID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

type JWTAuthenticator struct {
	cfg TokenConfig
	now func() time.Time
}

// NewJWTAuthenticator builds the token service. now defaults to time.Now.
func NewJWTAuthenticator(cfg TokenConfig, now func() time.Time) *JWTAuthenticator {
	if now == nil {
		now = time.Now
	}
	return &JWTAuthenticator{cfg: cfg, now: now}
}

// IssueTokenPair signs an access and a refresh token for identityID, each
// with its own secret and lifetime.
func (a *JWTAuthenticator) IssueTokenPair(identityID string) (TokenPair, error) {
	now := a.now()
	accessExp := now.Add(a.cfg.AccessTTL)

	access, err := a.sign(identityID, now, accessExp, a.cfg.Secret)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := a.sign(identityID, now, now.Add(a.cfg.RefreshTTL), a.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExp}, nil
}

func (a *JWTAuthenticator) sign(sub string, iat, exp time.Time, secret string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (a *JWTAuthenticator) VerifyAccessToken(token string) (string, error) {
	c, err := a.ParseAccessToken(token)
	if err != nil {
		return "", err
	}
	return c.IdentityID, nil
}

func (a *JWTAuthenticator) VerifyRefreshToken(token string) (string, error) {
	c, err := a.ParseRefreshToken(token)
	if err != nil {
		return "", err
	}
	return c.IdentityID, nil
}

func (a *JWTAuthenticator) ParseAccessToken(token string) (*Claims, error) {
	return a.parse(token, a.cfg.Secret)
}

func (a *JWTAuthenticator) ParseRefreshToken(token string) (*Claims, error) {
	return a.parse(token, a.cfg.RefreshSecret)
}

func (a *JWTAuthenticator) parse(token, secret string) (*Claims, error) {
	var claims jwt.RegisteredClaims

	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(a.now),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredCredential, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}

	out := &Claims{IdentityID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
