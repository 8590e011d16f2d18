// Package rbac implements the authorization core for the practice-management
// platform: the permission catalog, organization-hierarchy-aware scope
// expansion, per-request user contexts, a pure permission checker, and the
// guard layer every business service calls before touching data.
package rbac

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope is the breadth of data a permission grants access to.
type Scope uint8

const (
	// ScopeNone means no matching permission is held.
	ScopeNone Scope = iota
	// ScopeOwn grants access to resources the user created.
	ScopeOwn
	// ScopeOrganization grants access within the user's accessible
	// organization set (direct memberships plus descendants).
	ScopeOrganization
	// ScopeAll grants unrestricted access.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeOrganization:
		return "organization"
	case ScopeAll:
		return "all"
	default:
		return "none"
	}
}

// ParseScope converts the wire form of a scope into a Scope value.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "own":
		return ScopeOwn, nil
	case "organization":
		return ScopeOrganization, nil
	case "all":
		return ScopeAll, nil
	default:
		return ScopeNone, &ConfigurationError{Name: s, Reason: "unknown scope"}
	}
}

// Broader reports whether s grants at least as much access as other.
func (s Scope) Broader(other Scope) bool {
	return s >= other
}

// Permission is a parsed, validated permission. The string form
// "resource:action:scope" exists only at the system's edges (database rows,
// log output); everything inside the core works with this value type.
type Permission struct {
	Resource string
	Action   string
	Scope    Scope
}

// namePart matches a lowercase, optionally hyphenated resource or action
// segment, e.g. "work-items" or "read".
var namePart = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// ParsePermission parses the wire form "resource:action:scope". Malformed
// names are a programming error in calling code or corrupt catalog data, so
// the returned error is a ConfigurationError.
func ParsePermission(name string) (Permission, error) {
	parts := strings.Split(name, ":")
	if len(parts) != 3 {
		return Permission{}, &ConfigurationError{Name: name, Reason: "expected resource:action:scope"}
	}
	if !namePart.MatchString(parts[0]) {
		return Permission{}, &ConfigurationError{Name: name, Reason: "invalid resource segment"}
	}
	if !namePart.MatchString(parts[1]) {
		return Permission{}, &ConfigurationError{Name: name, Reason: "invalid action segment"}
	}
	scope, err := ParseScope(parts[2])
	if err != nil {
		return Permission{}, &ConfigurationError{Name: name, Reason: "invalid scope segment"}
	}
	return Permission{Resource: parts[0], Action: parts[1], Scope: scope}, nil
}

// MustParsePermission is ParsePermission for static catalog entries; it
// panics on malformed input and is intended for package-level declarations.
func MustParsePermission(name string) Permission {
	p, err := ParsePermission(name)
	if err != nil {
		panic(fmt.Sprintf("rbac: %v", err))
	}
	return p
}

// String returns the wire form of the permission.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action + ":" + p.Scope.String()
}

// Key returns the scope-less "resource:action" grant key.
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}

// Variants returns the permission at every grantable scope, narrowest
// first. Useful for "any scope of this operation" checks at call sites that
// only know the resource and action.
func (p Permission) Variants() []Permission {
	return []Permission{
		{Resource: p.Resource, Action: p.Action, Scope: ScopeOwn},
		{Resource: p.Resource, Action: p.Action, Scope: ScopeOrganization},
		{Resource: p.Resource, Action: p.Action, Scope: ScopeAll},
	}
}

// SuperAdminPermission is the wildcard grant that marks a role bundle as
// super admin. It is not parseable as a regular permission and is handled
// explicitly by the context builder.
const SuperAdminPermission = "*:*:all"
