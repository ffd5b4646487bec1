package orgs_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/orgs"
	"github.com/uniflow/uniflow/internal/testutil"
)

func TestGet_ScopedToOwnOrganization(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := orgs.NewService(tc.DB)

	org, count, err := svc.Get(testutil.TestContext(t), tc.Org.ID, tc.User)
	require.NoError(t, err)
	assert.Equal(t, tc.Org.ID, org.ID)
	assert.Equal(t, int64(1), count)

	other := testutil.CreateTestOrg(t, tc.DB)
	_, _, err = svc.Get(testutil.TestContext(t), other.ID, tc.User)
	assert.ErrorIs(t, err, orgs.ErrNotFound)
}

func TestMembers_RoleFilter(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleEditor)
	testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleViewer)

	svc := orgs.NewService(tc.DB)

	all, err := svc.Members(testutil.TestContext(t), tc.User, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	editors, err := svc.Members(testutil.TestContext(t), tc.User, "editor")
	require.NoError(t, err)
	assert.Len(t, editors, 1)

	_, err = svc.Members(testutil.TestContext(t), tc.User, "superuser")
	assert.ErrorIs(t, err, orgs.ErrInvalidRole)
}

func TestMemberLifecycle(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := orgs.NewService(tc.DB)
	member := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleViewer)

	// Promote
	updated, err := svc.UpdateMemberRole(testutil.TestContext(t), tc.User, member.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	// Remove: the account survives with no organization and viewer role.
	require.NoError(t, svc.RemoveMember(testutil.TestContext(t), tc.User, member.ID))

	var detached models.User
	require.NoError(t, tc.DB.First(&detached, member.ID).Error)
	assert.Equal(t, uuid.Nil, detached.OrganizationID)
	assert.Equal(t, models.RoleViewer, detached.Role)

	// The detached user is now available to other organizations.
	available, err := svc.AvailableUsers(testutil.TestContext(t))
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, member.ID, available[0].ID)

	// And can be pulled back in.
	added, err := svc.AddMember(testutil.TestContext(t), tc.User, member.ID, models.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, tc.Org.ID, added.OrganizationID)
	assert.Equal(t, models.RoleEditor, added.Role)
}

func TestUpdateMember_OutsideOrganization(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := orgs.NewService(tc.DB)
	other := testutil.CreateTestOrg(t, tc.DB)
	outsider := testutil.CreateTestUser(t, tc.DB, other, models.RoleEditor)

	_, err := svc.UpdateMemberRole(testutil.TestContext(t), tc.User, outsider.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, orgs.ErrMemberNotFound)
}
