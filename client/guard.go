package client

import (
	"strings"

	"github.com/trezcool/academia/core/auth"
)

// Decision is the Route Guard's verdict for a navigation target.
// Every navigation starts Pending; it ends Rendering or redirecting.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionRender
	DecisionRedirectLogin
	DecisionRedirectUnauthorized
	DecisionRedirectHome
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionRender:
		return "render"
	case DecisionRedirectLogin:
		return "redirect:login"
	case DecisionRedirectUnauthorized:
		return "redirect:unauthorized"
	case DecisionRedirectHome:
		return "redirect:home"
	}
	return "unknown"
}

// Evaluation is a Decision plus the redirect target, when there is one.
type Evaluation struct {
	Decision Decision
	Target   string
}

// routeRule binds a path prefix to a policy resource with its own
// allowed-role set, on top of the namespace rules.
type routeRule struct {
	prefix   string
	resource string
}

// Guard gates navigation into the protected dashboard area. It never
// renders protected content for a denied caller: it redirects to the
// sign-in surface, the unauthorized surface, or the caller's own home
// namespace.
type Guard struct {
	policy           *auth.Policy
	rules            []routeRule
	loginPath        string
	unauthorizedPath string
	dashboardPrefix  string
}

func NewGuard(policy *auth.Policy) *Guard {
	return &Guard{
		policy:           policy,
		loginPath:        "/login",
		unauthorizedPath: "/unauthorized",
		dashboardPrefix:  "/dashboard",
	}
}

// Protect binds a path prefix to a declared policy resource; callers whose
// role the resource denies are sent to the unauthorized surface.
func (g *Guard) Protect(prefix, resource string) {
	g.rules = append(g.rules, routeRule{prefix: prefix, resource: resource})
}

// Evaluate decides what to do with a navigation to path under the given
// session state.
func (g *Guard) Evaluate(state AuthState, path string) Evaluation {
	// defer the decision while the session is still being resolved
	if state.Loading {
		return Evaluation{Decision: DecisionPending}
	}

	if !strings.HasPrefix(path, g.dashboardPrefix) {
		return Evaluation{Decision: DecisionRender}
	}

	if !state.IsAuthenticated || state.Identity == nil {
		return Evaluation{Decision: DecisionRedirectLogin, Target: g.loginPath}
	}
	role := state.Identity.Role

	// resource rules first: a denied capability is a hard stop
	for _, rule := range g.rules {
		if strings.HasPrefix(path, rule.prefix) {
			if err := g.policy.Allow(rule.resource, role); err != nil {
				return Evaluation{Decision: DecisionRedirectUnauthorized, Target: g.unauthorizedPath}
			}
		}
	}

	ns := g.namespaceOf(path)
	if ns == "" {
		// bare /dashboard lands on the caller's own namespace
		return Evaluation{Decision: DecisionRedirectHome, Target: auth.HomePath(role)}
	}
	if _, known := g.policy.NamespaceRole(ns); !known {
		return Evaluation{Decision: DecisionRedirectUnauthorized, Target: g.unauthorizedPath}
	}

	// home-namespace rule: even when generic policy would allow a read,
	// a caller sitting outside their own namespace is sent home unless
	// they hold a declared elevated view over it.
	if ns != auth.HomeNamespace(role) && !g.policy.IsElevated(ns, role) {
		return Evaluation{Decision: DecisionRedirectHome, Target: auth.HomePath(role)}
	}
	return Evaluation{Decision: DecisionRender}
}

func (g *Guard) namespaceOf(path string) string {
	rest := strings.TrimPrefix(path, g.dashboardPrefix)
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
