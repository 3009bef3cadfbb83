package audit

import "storedesk/internal/domain/auditlog"

// Actor is who performed an action and from where.
type Actor struct {
	UserID    string
	StoreID   *string
	RoleSlug  string
	IP        string
	UserAgent string
}

func (a Actor) Entry(action, entityType string, entityID *string) auditlog.Entry {
	e := auditlog.Entry{
		StoreID:    a.StoreID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  a.IP,
		UserAgent:  a.UserAgent,
	}
	if a.UserID != "" {
		id := a.UserID
		e.UserID = &id
	}
	return e
}

// Sink is anything that accepts entries fire-and-forget.
type Sink interface {
	Record(e auditlog.Entry)
}

var _ Sink = (*Recorder)(nil)
