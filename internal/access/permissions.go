// Package access decides role and permission gates for authenticated principals.
package access

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	RoleSystemOwner  = "system_owner"
	RoleStoreManager = "store_manager"

	allSentinel = "all"
)

// Grant is the access a role has on a single resource.
type Grant struct {
	unrestricted bool
	actions      map[string]struct{}
}

func Unrestricted() Grant {
	return Grant{unrestricted: true}
}

func Actions(actions ...string) Grant {
	set := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return Grant{actions: set}
}

func (g Grant) Unrestricted() bool { return g.unrestricted }

func (g Grant) Allows(action string) bool {
	if g.unrestricted {
		return true
	}
	_, ok := g.actions[action]
	return ok
}

func (g Grant) actionList() []string {
	out := make([]string, 0, len(g.actions))
	for a := range g.actions {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Permissions is the permission set stored on a role: either universal
// ({"all": true}) or a mapping from resource to Grant.
type Permissions struct {
	universal bool
	resources map[string]Grant
}

func Universal() Permissions {
	return Permissions{universal: true}
}

func NewPermissions(resources map[string]Grant) Permissions {
	return Permissions{resources: resources}
}

func (p Permissions) Universal() bool { return p.universal }

func (p Permissions) Grant(resource string) (Grant, bool) {
	g, ok := p.resources[resource]
	return g, ok
}

func (p Permissions) Allows(resource, action string) bool {
	if p.universal {
		return true
	}
	g, ok := p.resources[resource]
	if !ok {
		return false
	}
	return g.Allows(action)
}

// UnmarshalJSON accepts:
//
//	{"all": true}
//	{"invoices": "all", "partners": ["read", "create"]}
func (p *Permissions) UnmarshalJSON(data []byte) error {
	*p = Permissions{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("permissions: %w", err)
	}

	if v, ok := raw[allSentinel]; ok {
		var all bool
		if err := json.Unmarshal(v, &all); err == nil && all {
			p.universal = true
			return nil
		}
	}

	p.resources = make(map[string]Grant, len(raw))
	for resource, v := range raw {
		if resource == allSentinel {
			continue
		}
		g, err := decodeGrant(v)
		if err != nil {
			return fmt.Errorf("permissions: resource %q: %w", resource, err)
		}
		p.resources[resource] = g
	}
	return nil
}

func decodeGrant(v json.RawMessage) (Grant, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s == allSentinel {
			return Unrestricted(), nil
		}
		return Grant{}, fmt.Errorf("unknown sentinel %q", s)
	}

	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		return Grant{}, fmt.Errorf("grant must be %q or a list of actions", allSentinel)
	}
	return Actions(list...), nil
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	if p.universal {
		return []byte(`{"all":true}`), nil
	}
	out := make(map[string]any, len(p.resources))
	for resource, g := range p.resources {
		if g.unrestricted {
			out[resource] = allSentinel
			continue
		}
		out[resource] = g.actionList()
	}
	return json.Marshal(out)
}

// Scan lets a jsonb column decode straight into Permissions.
func (p *Permissions) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Permissions{}
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("permissions: cannot scan %T", src)
	}
}
