package rbac

import "testing"

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{"learner", "attempt:create", true},
		{"learner", "attempt:view-own", true},
		{"learner", "attempt:view-all", false},
		{"learner", "question:create", false},
		{"instructor", "question:create", true},
		{"instructor", "attempt:grade", true},
		{"instructor", "attempt:create", false},
		{"admin", "anything:at-all", true},
		{"unknown", "attempt:create", false},
	}
	for _, tc := range tests {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerWildcardPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{
		"grader": {"attempt:*"},
	})
	if !c.Has("grader", "attempt:grade") {
		t.Fatal("prefix wildcard should match attempt:grade")
	}
	if c.Has("grader", "quiz:edit") {
		t.Fatal("prefix wildcard must not match other resources")
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("learner", "attempt:view-own", "attempt:view-all") {
		t.Fatal("learner should pass with view-own")
	}
	if c.Any("learner", "attempt:view-all", "attempt:grade") {
		t.Fatal("learner has neither permission")
	}
}
