// Package access gates policy records by the business classes a caller's
// roles may see.
package access

import "strings"

// Role identifies a caller role.  Matching is case-insensitive.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleSuperUser   Role = "super user"
	RoleFire        Role = "fi"
	RoleEngineering Role = "eg"
	RoleMarine      Role = "marine"
	RoleMotor       Role = "motor"
	RoleLife        Role = "life"
	RoleCasualty    Role = "casualty"
	RoleAgriculture Role = "agriculture"
	RoleFinance     Role = "finance"
)

// ParseRole canonicalizes a role identifier: lowercased, trimmed and with
// internal whitespace collapsed.
func ParseRole(s string) Role {
	return Role(strings.Join(strings.Fields(strings.ToLower(s)), " "))
}

// Unrestricted reports whether the role sees every class.
func (r Role) Unrestricted() bool {
	return r == RoleAdmin || r == RoleSuperUser
}

// Class is a canonical business class token.
type Class string

const (
	ClassFire        Class = "FI"
	ClassEngineering Class = "EG"
	ClassMarine      Class = "MARINE"
	ClassMotor       Class = "MOTOR"
	ClassLife        Class = "LIFE"
	ClassCasualty    Class = "CASUALTY"
	ClassAgriculture Class = "AGRIC"
)

// AllClasses is the full export set of business classes.
var AllClasses = []Class{
	ClassFire, ClassEngineering, ClassMarine, ClassMotor,
	ClassLife, ClassCasualty, ClassAgriculture,
}

// Matches reports whether a record's class label matches the token: equal,
// containing or contained, compared case-insensitively.  An empty label
// never matches.
func (c Class) Matches(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	tok := strings.ToLower(string(c))
	if l == "" || tok == "" {
		return false
	}
	return l == tok || strings.Contains(l, tok) || strings.Contains(tok, l)
}

// DefaultRoleClasses is the built-in role table.  Finance covers the whole
// export set but remains an explicit list, distinct from the admin roles.
func DefaultRoleClasses() map[Role][]Class {
	return map[Role][]Class{
		RoleFire:        {ClassFire},
		RoleEngineering: {ClassEngineering},
		RoleMarine:      {ClassMarine},
		RoleMotor:       {ClassMotor},
		RoleLife:        {ClassLife},
		RoleCasualty:    {ClassCasualty},
		RoleAgriculture: {ClassAgriculture},
		RoleFinance:     append([]Class(nil), AllClasses...),
	}
}
