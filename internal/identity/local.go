package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Credential struct {
	UserID       string
	Login        string
	PasswordHash []byte
}

type CredentialStore interface {
	Insert(ctx context.Context, c *Credential) error
	Delete(ctx context.Context, userID string) error
	GetByLogin(ctx context.Context, login string) (*Credential, error)
	UpdateHash(ctx context.Context, userID string, hash []byte) error
	UpdateLogin(ctx context.Context, userID, login string) error
}

// LocalProvider keeps bcrypt hashes in our own database.
type LocalProvider struct {
	store CredentialStore
	cost  int
	// compared against on unknown logins so both paths pay for a bcrypt round
	dummyHash []byte
}

func NewLocalProvider(store CredentialStore, cost int) (*LocalProvider, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, err
	}
	return &LocalProvider{store: store, cost: cost, dummyHash: dummy}, nil
}

func (p *LocalProvider) hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (p *LocalProvider) CreateUser(ctx context.Context, u NewUser) (string, error) {
	hash, err := p.hash(u.Password)
	if err != nil {
		return "", err
	}

	c := &Credential{UserID: uuid.NewString(), Login: u.Login, PasswordHash: hash}
	if err := p.store.Insert(ctx, c); err != nil {
		return "", err
	}
	return c.UserID, nil
}

func (p *LocalProvider) DeleteUser(ctx context.Context, id string) error {
	return p.store.Delete(ctx, id)
}

func (p *LocalProvider) VerifyPassword(ctx context.Context, login, password string) (string, error) {
	c, err := p.store.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return c.UserID, nil
}

func (p *LocalProvider) UpdatePassword(ctx context.Context, id, password string) error {
	hash, err := p.hash(password)
	if err != nil {
		return err
	}
	return p.store.UpdateHash(ctx, id, hash)
}

func (p *LocalProvider) UpdateLogin(ctx context.Context, id, login string) error {
	return p.store.UpdateLogin(ctx, id, login)
}
