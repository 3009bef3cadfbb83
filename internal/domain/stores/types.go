package stores

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("store not found")
	ErrDuplicateSlug     = errors.New("a store with that slug already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

type Plan string

const (
	PlanFree     Plan = "free"
	PlanMonthly  Plan = "monthly"
	PlanSixMonth Plan = "6months"
	PlanYearly   Plan = "yearly"
)

type Store struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	OwnerID            *string    `json:"owner_id"`
	Status             Status     `json:"status"`
	Plan               Plan       `json:"subscription_plan"`
	TrialEndsAt        *time.Time `json:"trial_ends_at"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at"`
	Email              *string    `json:"email"`
	Phone              *string    `json:"phone"`
	Address            *string    `json:"address"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Filter struct {
	Status Status
	Plan   Plan
}

// Changes holds the mutable store profile fields; nil fields are left untouched.
type Changes struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

func (c Changes) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.Address == nil
}
