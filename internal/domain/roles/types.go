package roles

import (
	"errors"
	"time"

	"storedesk/internal/access"
)

var (
	ErrNotFound          = errors.New("role not found")
	QueryTimeoutDuration = time.Second * 5
)

type Role struct {
	ID          string             `json:"id"`
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	Permissions access.Permissions `json:"permissions"`
}
