package access

import (
	"sort"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

// Scope is the kind of an AllowList.
type Scope int

const (
	// ScopeNone grants no class.
	ScopeNone Scope = iota
	// ScopeAll grants every class, including records with no class.
	ScopeAll
	// ScopeClasses grants an explicit set of classes.
	ScopeClasses
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "unrestricted"
	case ScopeClasses:
		return "classes"
	default:
		return "none"
	}
}

// AllowList is the result of resolving a role set.
type AllowList struct {
	Scope   Scope   `json:"scope"`
	Classes []Class `json:"classes,omitempty"`
}

// Unrestricted returns an AllowList that permits everything.
func Unrestricted() AllowList { return AllowList{Scope: ScopeAll} }

// NoAccess returns an AllowList that permits nothing.
func NoAccess() AllowList { return AllowList{Scope: ScopeNone} }

// Permits reports whether a record with the given class label is visible.
func (a AllowList) Permits(label string) bool {
	switch a.Scope {
	case ScopeAll:
		return true
	case ScopeClasses:
		for _, c := range a.Classes {
			if c.Matches(label) {
				return true
			}
		}
	}
	return false
}

// Policy resolves roles to allow-lists.  It is immutable after construction
// and safe for concurrent use.
type Policy struct {
	roles map[Role][]Class
}

// NewPolicy builds a Policy from a role table.  Keys are canonicalized with
// ParseRole.  A nil table selects DefaultRoleClasses.
func NewPolicy(table map[Role][]Class) *Policy {
	if table == nil {
		table = DefaultRoleClasses()
	}
	roles := make(map[Role][]Class, len(table))
	for r, classes := range table {
		roles[ParseRole(string(r))] = append([]Class(nil), classes...)
	}
	return &Policy{roles: roles}
}

// PolicyFromStrings layers a loosely typed table, such as one read from
// configuration, over DefaultRoleClasses.  Each listed role replaces the
// built-in entry of the same name.
func PolicyFromStrings(table map[string][]string) *Policy {
	typed := DefaultRoleClasses()
	for r, classes := range table {
		list := make([]Class, 0, len(classes))
		for _, c := range classes {
			list = append(list, Class(c))
		}
		typed[ParseRole(r)] = list
	}
	return NewPolicy(typed)
}

// AllowedClasses resolves roles to an AllowList: unrestricted when any role
// is admin-equivalent, none when no role is recognized, otherwise the union
// of the recognized roles' classes.
func (p *Policy) AllowedClasses(roles []string) AllowList {
	seen := make(map[Class]struct{})
	recognized := false
	for _, raw := range roles {
		r := ParseRole(raw)
		if r.Unrestricted() {
			return Unrestricted()
		}
		classes, ok := p.roles[r]
		if !ok {
			continue
		}
		recognized = true
		for _, c := range classes {
			seen[c] = struct{}{}
		}
	}
	if !recognized {
		return NoAccess()
	}
	out := make([]Class, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return AllowList{Scope: ScopeClasses, Classes: out}
}

// Filter returns the records visible to roles, in input order.
func (p *Policy) Filter(records []policy.Record, roles []string) []policy.Record {
	return Apply(records, p.AllowedClasses(roles))
}

// Apply filters records through an already resolved AllowList.
func Apply(records []policy.Record, allow AllowList) []policy.Record {
	switch allow.Scope {
	case ScopeAll:
		out := make([]policy.Record, len(records))
		copy(out, records)
		return out
	case ScopeNone:
		return []policy.Record{}
	}
	out := make([]policy.Record, 0, len(records))
	for _, r := range records {
		if allow.Permits(r.Class) {
			out = append(out, r)
		}
	}
	return out
}
