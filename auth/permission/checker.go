// Package permission maps roles to "resource:action" permissions and
// resolves a subject's role from an authoritative store.
//
//	checker := permission.NewMapChecker(map[string][]string{
//	    "admin":   {"*"},
//	    "student": {"profile:read", "profile:write"},
//	})
//	checker.HasPermission("student", "profile:read") // true
package permission

import (
	"context"
	"strings"
)

// Built-in role names.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// DefaultPermissions is the role table used when none is configured.
var DefaultPermissions = map[string][]string{
	RoleAdmin:   {"*"},
	RoleStudent: {"profile:read", "profile:write"},
}

// RoleResolver returns the current role of a subject from the identity
// store. It must not derive roles from token contents.
type RoleResolver interface {
	RoleOf(ctx context.Context, subject string) (string, error)
}

// RoleResolverFunc is an adapter to use ordinary functions as RoleResolver.
type RoleResolverFunc func(ctx context.Context, subject string) (string, error)

func (f RoleResolverFunc) RoleOf(ctx context.Context, subject string) (string, error) {
	return f(ctx, subject)
}

// Checker decides whether a role holds a permission.
type Checker interface {
	HasPermission(role string, permission string) bool
}

// CheckerFunc is an adapter to use ordinary functions as Checker.
type CheckerFunc func(role string, permission string) bool

func (f CheckerFunc) HasPermission(role string, permission string) bool {
	return f(role, permission)
}

// MapChecker is an in-memory Checker backed by a map of role to permission patterns.
type MapChecker struct {
	permissions map[string][]string
}

// NewMapChecker creates a Checker from a static map of role to permission patterns.
func NewMapChecker(permissions map[string][]string) *MapChecker {
	return &MapChecker{permissions: permissions}
}

func (c *MapChecker) HasPermission(role string, required string) bool {
	patterns, ok := c.permissions[role]
	if !ok {
		return false
	}
	return MatchAny(patterns, required)
}

// MatchPattern checks if a permission pattern matches a required permission.
// Supports "resource:action" format with wildcards:
//
//   - "*" or "*:*"   matches everything
//   - "profile:*"    matches "profile:read", "profile:write"
//   - "*:read"       matches "profile:read", "admin:read"
//   - "profile:read" matches only "profile:read"
func MatchPattern(pattern, required string) bool {
	if pattern == required || pattern == "*" || pattern == "*:*" {
		return true
	}

	patParts := strings.SplitN(pattern, ":", 2)
	reqParts := strings.SplitN(required, ":", 2)
	if len(patParts) != len(reqParts) || len(patParts) == 1 {
		return matchWildcard(pattern, required)
	}
	return matchWildcard(patParts[0], reqParts[0]) && matchWildcard(patParts[1], reqParts[1])
}

// MatchAny returns true if any of the patterns match the required permission.
func MatchAny(patterns []string, required string) bool {
	for _, p := range patterns {
		if MatchPattern(p, required) {
			return true
		}
	}
	return false
}

func matchWildcard(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
