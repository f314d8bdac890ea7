package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Can(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermReadBooks, true},
		{RoleAdmin, PermChat, true},
		{RoleAdmin, PermManageBooks, true},
		{RoleAdmin, PermViewJobs, true},
		{RoleUser, PermReadBooks, true},
		{RoleUser, PermChat, true},
		{RoleUser, PermManageBooks, false},
		{RoleUser, PermViewJobs, false},
		{Role("superuser"), PermReadBooks, false},
		{Role(""), PermChat, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.Can(tt.perm), "%s can %d", tt.role, tt.perm)
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("Admin")
	assert.False(t, ok)
}

func TestJobState_IsTerminal(t *testing.T) {
	assert.False(t, JobQueued.IsTerminal())
	assert.False(t, JobRunning.IsTerminal())
	assert.True(t, JobSucceeded.IsTerminal())
	assert.True(t, JobFailed.IsTerminal())
}
