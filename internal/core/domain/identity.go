package domain

import (
	"regexp"
	"strings"
	"time"
)

// Role is the closed set of authorisation tiers an identity can hold.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleSalesRep Role = "SALES_REP"
)

// roleRank orders roles for subordinate checks. Higher outranks lower.
var roleRank = map[Role]int{
	RoleSalesRep: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

// Roles lists every valid role, most privileged first.
var Roles = []Role{RoleAdmin, RoleManager, RoleSalesRep}

// ParseRole converts s into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", false
	}
	return r, true
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Outranks reports whether r is strictly more privileged than other.
// Unknown roles never outrank anything and are outranked by every known role.
func (r Role) Outranks(other Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	return rr > roleRank[other]
}

// Identity is the durable credential record. Identities are never removed;
// Active=false is the only removal semantic.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile holds the fields an identity may change about itself.
// Username and Role cannot be changed through it.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// MaxPasswordBytes is the longest password bcrypt accepts, in bytes.
const MaxPasswordBytes = 72

// usernamePattern: letters, digits, dot, hyphen, underscore; 3-50 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

// IsValidUsername checks the username format.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// NormalizeUsername trims and lower-cases a username so that "Alice" and
// "alice" collide on the unique index.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
