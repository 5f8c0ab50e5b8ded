// Package security gates orchestrator actions by caller role and builds the
// serve command's TLS configuration.
package security

import (
	"fmt"
	"strings"
)

type Action string

const (
	ActionGenerate     Action = "generate"
	ActionCapabilities Action = "capabilities"
	ActionUsage        Action = "usage"
	ActionAuditExport  Action = "audit_export"
)

type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// Policy maps actions to allowed roles.
type Policy struct {
	allowed map[Action]map[Role]struct{}
}

// DefaultPolicy lets viewers inspect providers, operators generate and read
// usage, and reserves audit export for admins.
func DefaultPolicy() Policy {
	return NewPolicy(map[Action][]Role{
		ActionCapabilities: {RoleViewer, RoleOperator, RoleAdmin},
		ActionGenerate:     {RoleOperator, RoleAdmin},
		ActionUsage:        {RoleOperator, RoleAdmin},
		ActionAuditExport:  {RoleAdmin},
	})
}

func NewPolicy(allowed map[Action][]Role) Policy {
	out := Policy{allowed: make(map[Action]map[Role]struct{}, len(allowed))}
	for act, roles := range allowed {
		set := make(map[Role]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		out.allowed[act] = set
	}
	return out
}

func (p Policy) IsAllowed(role Role, action Action) bool {
	set, ok := p.allowed[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// Authorize returns a descriptive error when role may not perform action.
func (p Policy) Authorize(role Role, action Action) error {
	if !p.IsAllowed(role, action) {
		return fmt.Errorf("rbac denied: role %q cannot perform %q", role, action)
	}
	return nil
}

func ParseRole(raw string) (Role, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch Role(s) {
	case RoleViewer, RoleOperator, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", raw)
	}
}

// RoleOr parses raw and falls back to def when raw is empty or unknown.
func RoleOr(raw string, def Role) Role {
	if r, err := ParseRole(raw); err == nil {
		return r
	}
	return def
}

var roleRank = map[Role]int{RoleViewer: 1, RoleOperator: 2, RoleAdmin: 3}

// RoleAtMost parses raw and caps it at ceiling. An empty or unknown raw
// yields ceiling, so a caller-supplied role can only drop privilege.
func RoleAtMost(raw string, ceiling Role) Role {
	r, err := ParseRole(raw)
	if err != nil || roleRank[r] > roleRank[ceiling] {
		return ceiling
	}
	return r
}
