package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// GoTrueProvider manages identities through a GoTrue (Supabase Auth) server.
// Admin calls carry the service key; password checks go through the public
// client with the anon key.
type GoTrueProvider struct {
	admin  gotrue.Client
	public gotrue.Client
}

func NewGoTrueProvider(baseURL, serviceKey, anonKey string) *GoTrueProvider {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := http.Client{Timeout: 15 * time.Second}

	return &GoTrueProvider{
		admin: gotrue.New("", serviceKey).
			WithCustomGoTrueURL(baseURL).
			WithClient(httpClient).
			WithToken(serviceKey),
		public: gotrue.New("", anonKey).
			WithCustomGoTrueURL(baseURL).
			WithClient(httpClient),
	}
}

// statusOf recovers the HTTP status from the client's
// "response status code N: body" errors. 0 means a transport failure.
func statusOf(err error) int {
	var code int
	if _, scanErr := fmt.Sscanf(err.Error(), "response status code %d", &code); scanErr != nil {
		return 0
	}
	return code
}

func isConflict(status int) bool {
	return status == http.StatusUnprocessableEntity || status == http.StatusConflict
}

// userID parses a provider id. Ids that are not uuids cannot exist upstream.
func userID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return uid, nil
}

func (p *GoTrueProvider) CreateUser(ctx context.Context, u NewUser) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	meta := make(map[string]interface{}, len(u.Metadata))
	for k, v := range u.Metadata {
		meta[k] = v
	}
	password := u.Password

	created, err := p.admin.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        u.Login,
		Password:     &password,
		EmailConfirm: true,
		UserMetadata: meta,
	})
	if err != nil {
		if isConflict(statusOf(err)) {
			return "", fmt.Errorf("%w: %v", ErrLoginTaken, err)
		}
		return "", fmt.Errorf("gotrue create user: %w", err)
	}
	if created.ID == uuid.Nil {
		return "", fmt.Errorf("gotrue create user: empty id in response")
	}
	return created.ID.String(), nil
}

func (p *GoTrueProvider) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := userID(id)
	if err != nil {
		return err
	}

	if err := p.admin.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: uid}); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("gotrue delete user: %w", err)
	}
	return nil
}

func (p *GoTrueProvider) VerifyPassword(ctx context.Context, login, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	session, err := p.public.SignInWithEmailPassword(login, password)
	if err != nil {
		switch statusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("gotrue sign in: %w", err)
	}
	return session.User.ID.String(), nil
}

func (p *GoTrueProvider) UpdatePassword(ctx context.Context, id, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := userID(id)
	if err != nil {
		return err
	}

	_, err = p.admin.AdminUpdateUser(types.AdminUpdateUserRequest{UserID: uid, Password: password})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("gotrue update password: %w", err)
	}
	return nil
}

func (p *GoTrueProvider) UpdateLogin(ctx context.Context, id, login string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := userID(id)
	if err != nil {
		return err
	}

	_, err = p.admin.AdminUpdateUser(types.AdminUpdateUserRequest{UserID: uid, Email: login, EmailConfirm: true})
	if err != nil {
		status := statusOf(err)
		switch {
		case status == http.StatusNotFound:
			return ErrNotFound
		case isConflict(status):
			return fmt.Errorf("%w: %v", ErrLoginTaken, err)
		}
		return fmt.Errorf("gotrue update login: %w", err)
	}
	return nil
}
