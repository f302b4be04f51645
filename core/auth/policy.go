package auth

import (
	"strings"

	"github.com/trezcool/academia/core/user"
)

// ResourceUsers guards the user directory administration surface.
const ResourceUsers = "users"

type (
	// Resource is a protected capability (an API surface or action) with
	// an explicit allowed-role set. There is no implicit default-allow: a
	// role absent from the set is denied unless MinRole semantics are
	// declared and the role dominates it.
	Resource struct {
		Name    string
		Allowed []user.Role
		MinRole user.Role // "" disables minimum-role semantics
	}

	// namespaceRule binds a dashboard namespace to exactly one role, plus
	// the explicitly declared elevated cross-namespace viewers.
	namespaceRule struct {
		role     user.Role
		elevated []user.Role
	}

	// Policy maps (resource, role) to allow/deny decisions.
	Policy struct {
		resources  map[string]Resource
		namespaces map[string]namespaceRule
	}
)

func NewPolicy() *Policy {
	return &Policy{
		resources:  make(map[string]Resource),
		namespaces: make(map[string]namespaceRule),
	}
}

func (p *Policy) Declare(res Resource) {
	p.resources[res.Name] = res
}

// DeclareNamespace tags a dashboard namespace for a role. Elevated roles
// may additionally view it without it being their home namespace.
func (p *Policy) DeclareNamespace(ns string, role user.Role, elevated ...user.Role) {
	p.namespaces[ns] = namespaceRule{role: role, elevated: elevated}
}

// Allow decides whether role may use the named resource.
func (p *Policy) Allow(resource string, role user.Role) error {
	res, ok := p.resources[resource]
	if !ok {
		return ErrUnauthorized // undeclared resources are never allowed
	}
	for _, r := range res.Allowed {
		if r == role {
			return nil
		}
	}
	if res.MinRole != "" && role.AtLeast(res.MinRole) {
		return nil
	}
	return ErrUnauthorized
}

// AllowNamespace enforces the resource-role binding rule: a namespace
// tagged for role R is only accessible to R and its declared elevated
// viewers. Being authenticated is not enough.
func (p *Policy) AllowNamespace(ns string, role user.Role) error {
	rule, ok := p.namespaces[ns]
	if !ok {
		return ErrUnauthorized
	}
	if rule.role == role {
		return nil
	}
	for _, r := range rule.elevated {
		if r == role {
			return nil
		}
	}
	return ErrUnauthorized
}

// IsElevated reports whether role holds a declared cross-namespace view
// over ns (ie. it may sit there without being redirected home).
func (p *Policy) IsElevated(ns string, role user.Role) bool {
	rule, ok := p.namespaces[ns]
	if !ok {
		return false
	}
	for _, r := range rule.elevated {
		if r == role {
			return true
		}
	}
	return false
}

// NamespaceRole returns the role a namespace is tagged for.
func (p *Policy) NamespaceRole(ns string) (user.Role, bool) {
	rule, ok := p.namespaces[ns]
	return rule.role, ok
}

// HomeNamespace returns the dashboard namespace owned by a role.
func HomeNamespace(role user.Role) string {
	return strings.ReplaceAll(string(role), "_", "")
}

// HomePath returns the dashboard path a role belongs at.
func HomePath(role user.Role) string {
	return "/dashboard/" + HomeNamespace(role)
}

// DefaultPolicy declares the platform's namespaces and admin resources.
func DefaultPolicy() *Policy {
	p := NewPolicy()
	for _, role := range user.AllRoles {
		if role.IsAdminTier() {
			p.DeclareNamespace(HomeNamespace(role), role)
			continue
		}
		// admins hold declared elevated views over non-admin namespaces
		p.DeclareNamespace(HomeNamespace(role), role, user.AdminRoles...)
	}
	p.Declare(Resource{Name: ResourceUsers, Allowed: []user.Role{user.RoleSuperAdmin, user.RoleAdmin}, MinRole: user.RoleAdmin})
	return p
}
