package permission

import (
	"context"
	"testing"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern, required string
		want              bool
	}{
		{"*", "profile:read", true},
		{"*:*", "admin:overview", true},
		{"profile:*", "profile:write", true},
		{"profile:*", "admin:read", false},
		{"*:read", "profile:read", true},
		{"*:read", "profile:write", false},
		{"profile:read", "profile:read", true},
		{"profile:read", "profile", false},
		{"admin", "admin", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"->"+tt.required, func(t *testing.T) {
			if got := MatchPattern(tt.pattern, tt.required); got != tt.want {
				t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.required, got, tt.want)
			}
		})
	}
}

func TestMapChecker_Defaults(t *testing.T) {
	c := NewMapChecker(DefaultPermissions)
	if !c.HasPermission(RoleAdmin, "admin:overview") {
		t.Error("admin should hold every permission")
	}
	if !c.HasPermission(RoleStudent, "profile:read") {
		t.Error("student should read profile")
	}
	if c.HasPermission(RoleStudent, "admin:overview") {
		t.Error("student must not reach admin permissions")
	}
	if c.HasPermission("ghost", "profile:read") {
		t.Error("unknown role must hold nothing")
	}
}

func TestAdapters(t *testing.T) {
	var r RoleResolver = RoleResolverFunc(func(ctx context.Context, subject string) (string, error) {
		return RoleAdmin, nil
	})
	if role, _ := r.RoleOf(context.Background(), "u"); role != RoleAdmin {
		t.Errorf("RoleOf = %q", role)
	}
	var c Checker = CheckerFunc(func(role, perm string) bool { return role == RoleAdmin })
	if !c.HasPermission(RoleAdmin, "x") || c.HasPermission(RoleStudent, "x") {
		t.Error("CheckerFunc did not delegate")
	}
}
