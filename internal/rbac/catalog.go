package rbac

import "sort"

// Catalog is the set of permissions known to the system, parsed and
// validated once at startup. The core treats it as read-only; permissions
// are seeded and administered out of band.
type Catalog struct {
	byName map[string]Permission
}

// NewCatalog builds a catalog from parsed permissions.
func NewCatalog(perms []Permission) *Catalog {
	c := &Catalog{byName: make(map[string]Permission, len(perms))}
	for _, p := range perms {
		c.byName[p.String()] = p
	}
	return c
}

// NewCatalogFromNames parses wire-form permission names into a catalog.
// The first malformed name aborts with a ConfigurationError so that bad
// catalog data fails loudly at startup rather than silently shrinking the
// permission set.
func NewCatalogFromNames(names []string) (*Catalog, error) {
	perms := make([]Permission, 0, len(names))
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return NewCatalog(perms), nil
}

// Lookup returns the catalog entry for a wire-form name.
func (c *Catalog) Lookup(name string) (Permission, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Contains reports whether the permission is part of the catalog.
func (c *Catalog) Contains(p Permission) bool {
	_, ok := c.byName[p.String()]
	return ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.byName)
}

// Names returns the sorted wire-form names of every entry, for seeding and
// admin listings.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// catalogResources lists every resource/action pair the platform guards.
// Each pair exists at all three scopes.
var catalogResources = []struct {
	resource string
	actions  []string
}{
	{"users", []string{"read", "create", "update", "delete"}},
	{"practices", []string{"read", "create", "update", "delete", "manage"}},
	{"organizations", []string{"read", "create", "update", "delete"}},
	{"work-items", []string{"read", "create", "update", "delete", "manage"}},
	{"templates", []string{"read", "create", "update", "delete"}},
	{"roles", []string{"read", "create", "update", "delete"}},
	{"dashboards", []string{"read", "create", "update", "delete"}},
	{"analytics", []string{"read"}},
}

// DefaultCatalog returns the built-in permission catalog for the
// practice-management domain.
func DefaultCatalog() *Catalog {
	var perms []Permission
	for _, r := range catalogResources {
		for _, action := range r.actions {
			for _, scope := range []Scope{ScopeOwn, ScopeOrganization, ScopeAll} {
				perms = append(perms, Permission{Resource: r.resource, Action: action, Scope: scope})
			}
		}
	}
	return NewCatalog(perms)
}
