package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleEditor))
	assert.True(t, RoleEditor.AtLeast(RoleViewer))
	assert.True(t, RoleEditor.AtLeast(RoleEditor))

	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, RoleEditor.AtLeast(RoleAdmin))
	assert.False(t, RoleAdmin.AtLeast(RoleOwner))

	// An unknown role never grants more than viewer.
	assert.False(t, Role("superuser").AtLeast(RoleEditor))
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"viewer", "editor", "admin", "owner"} {
		r, err := ParseRole(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, r.String())
	}

	_, err := ParseRole("root")
	assert.Error(t, err)

	// Case matters: roles are stored lowercase.
	_, err = ParseRole("Admin")
	assert.Error(t, err)
}
