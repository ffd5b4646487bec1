package proposals_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/proposals"
	"github.com/uniflow/uniflow/internal/testutil"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(db *gorm.DB, gen *testutil.StubGenerator) *proposals.Service {
	if gen == nil {
		return proposals.NewService(db, nil, nil, discardLogger())
	}
	return proposals.NewService(db, gen, nil, discardLogger())
}

func TestIterate_ReplacesContentExactly(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	gen := &testutil.StubGenerator{DraftOutput: "# Regenerated Document\n\nBrand new text."}
	svc := newService(tc.DB, gen)

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Roadworks Tender", "old content")

	updated, err := svc.Iterate(testutil.TestContext(t), p.ID, tc.User, "add a budget section", nil, false)
	require.NoError(t, err)
	assert.Equal(t, gen.DraftOutput, updated.Content)

	// The stored row carries the replacement, nothing appended.
	var stored models.Proposal
	require.NoError(t, tc.DB.First(&stored, p.ID).Error)
	assert.Equal(t, gen.DraftOutput, stored.Content)

	// The gateway saw the previous content and the single instruction.
	require.Len(t, gen.DraftCalls, 1)
	assert.Equal(t, "old content", gen.DraftCalls[0].CurrentContent)
	assert.Equal(t, "add a budget section", gen.DraftCalls[0].Instruction)
}

func TestIterate_WithoutGenerator(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc.DB, nil)
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "content")

	_, err := svc.Iterate(testutil.TestContext(t), p.ID, tc.User, "do something", nil, false)
	assert.ErrorIs(t, err, proposals.ErrAIUnavailable)

	// CRUD still works in degraded mode.
	renamed, err := svc.Rename(testutil.TestContext(t), p.ID, tc.User, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
}

func TestIterate_ViewerForbiddenBeforeVisibility(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	gen := &testutil.StubGenerator{DraftOutput: "new"}
	svc := newService(tc.DB, gen)

	viewer := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleViewer)
	p := testutil.CreateTestProposal(t, tc.DB, viewer.ID, "Tender", "content")

	// The role failure wins even on the viewer's own proposal: the answer is
	// forbidden, not found.
	_, err := svc.Iterate(testutil.TestContext(t), p.ID, viewer, "instruction", nil, false)
	assert.ErrorIs(t, err, proposals.ErrForbidden)

	_, _, err = svc.Submit(testutil.TestContext(t), p.ID, viewer)
	assert.ErrorIs(t, err, proposals.ErrForbidden)

	var stored models.Proposal
	require.NoError(t, tc.DB.First(&stored, p.ID).Error)
	assert.Equal(t, "content", stored.Content)
	assert.False(t, stored.FinalDraft)
}

func TestIterate_ConcurrentLastWriteWins(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "base")

	genX := &testutil.StubGenerator{DraftOutput: "version X"}
	genY := &testutil.StubGenerator{DraftOutput: "version Y"}
	svcX := newService(tc.DB, genX)
	svcY := newService(tc.DB, genY)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svcX.Iterate(testutil.TestContext(t), p.ID, tc.User, "make it X", nil, false)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svcY.Iterate(testutil.TestContext(t), p.ID, tc.User, "make it Y", nil, false)
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Whichever commit lands second wins wholesale; no merged state exists.
	var stored models.Proposal
	require.NoError(t, tc.DB.First(&stored, p.ID).Error)
	assert.Contains(t, []string{"version X", "version Y"}, stored.Content)
}

func TestSubmit_FreezesSnapshot(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc.DB, nil)
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "final text")

	submitted, result, err := svc.Submit(testutil.TestContext(t), p.ID, tc.User)
	require.NoError(t, err)

	assert.True(t, submitted.FinalDraft)
	assert.Equal(t, "final text", submitted.ProposalRevision)
	assert.Equal(t, models.ProposalStatusSubmitted, submitted.Status)

	// Degraded mode: snapshot lands, fan-out does not.
	assert.Zero(t, result.RevisionsCreated)
	assert.False(t, result.TenderGenerated)
}

func TestSubmit_EmptyContentStillFreezes(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc.DB, nil)
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Empty Tender", "")

	submitted, _, err := svc.Submit(testutil.TestContext(t), p.ID, tc.User)
	require.NoError(t, err)
	assert.True(t, submitted.FinalDraft)
	assert.Equal(t, "", submitted.ProposalRevision)
}

func TestSubmit_FanOutCreatesRevisions(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	legal := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "Contracts and compliance")
	finance := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Finance", "Budgeting")

	gen := &testutil.StubGenerator{
		DraftOutput: "ignored",
		FinalTender: "Consolidated tender body",
	}
	svc := newService(tc.DB, gen)

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Bridge Tender", "draft body")

	_, result, err := svc.Submit(testutil.TestContext(t), p.ID, tc.User)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RelevantDepartments)
	assert.Equal(t, 2, result.RevisionsCreated)
	assert.True(t, result.TenderGenerated)
	// No queue wired in this test, nothing enqueued.
	assert.Zero(t, result.NotificationsQueued)

	// Each assignee has exactly one revision copy carrying the consolidated
	// tender as its snapshot.
	for _, u := range []*models.User{legal, finance} {
		revisions, err := svc.MyRevisions(testutil.TestContext(t), u.Email)
		require.NoError(t, err)
		require.Len(t, revisions, 1)
		assert.Equal(t, models.ProposalStatusRevision, revisions[0].Status)
		assert.True(t, revisions[0].FinalDraft)
		assert.Equal(t, "Consolidated tender body", revisions[0].ProposalRevision)
	}

	// The parent snapshot is the consolidated tender too.
	var parent models.Proposal
	require.NoError(t, tc.DB.First(&parent, p.ID).Error)
	assert.Equal(t, "Consolidated tender body", parent.ProposalRevision)
}

func TestSubmit_ResubmitUpdatesExistingRevisions(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	legal := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "")

	gen := &testutil.StubGenerator{FinalTender: "tender v1"}
	svc := newService(tc.DB, gen)
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "body")

	_, _, err := svc.Submit(testutil.TestContext(t), p.ID, tc.User)
	require.NoError(t, err)

	gen.FinalTender = "tender v2"
	_, result, err := svc.Submit(testutil.TestContext(t), p.ID, tc.User)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RevisionsCreated)

	// Still a single copy per assignee, refreshed in place.
	revisions, err := svc.MyRevisions(testutil.TestContext(t), legal.Email)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, "tender v2", revisions[0].ProposalRevision)
}

func TestAssignRevision(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc.DB, nil)
	assignee := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "")
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "live draft")

	t.Run("assignee in organization", func(t *testing.T) {
		revision, err := svc.AssignRevision(testutil.TestContext(t), p.ID, tc.User, assignee.Email)
		require.NoError(t, err)
		assert.Equal(t, assignee.Email, revision.AssignedToEmail)
		// Never submitted, so the copy falls back to the live draft.
		assert.Equal(t, "live draft", revision.ProposalRevision)
	})

	t.Run("assignee outside organization", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		outsider := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleEditor)

		_, err := svc.AssignRevision(testutil.TestContext(t), p.ID, tc.User, outsider.Email)
		assert.ErrorIs(t, err, proposals.ErrAssigneeNotInOrganization)
	})
}

func TestMyRevisions_Isolation(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	alice := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "")
	bob := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Finance", "")

	svc := newService(tc.DB, nil)
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "draft")

	_, err := svc.AssignRevision(testutil.TestContext(t), p.ID, tc.User, alice.Email)
	require.NoError(t, err)
	_, err = svc.AssignRevision(testutil.TestContext(t), p.ID, tc.User, bob.Email)
	require.NoError(t, err)

	aliceRevisions, err := svc.MyRevisions(testutil.TestContext(t), alice.Email)
	require.NoError(t, err)
	require.Len(t, aliceRevisions, 1)
	assert.Equal(t, alice.Email, aliceRevisions[0].AssignedToEmail)

	bobRevisions, err := svc.MyRevisions(testutil.TestContext(t), bob.Email)
	require.NoError(t, err)
	require.Len(t, bobRevisions, 1)
	assert.Equal(t, bob.Email, bobRevisions[0].AssignedToEmail)
}

func TestList_ExcludesRevisionCopies(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	assignee := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "")
	svc := newService(tc.DB, nil)

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "draft")
	_, err := svc.AssignRevision(testutil.TestContext(t), p.ID, tc.User, assignee.Email)
	require.NoError(t, err)

	// The owner's list shows the original only; the copy belongs to the
	// assignee's my-revisions view.
	list, err := svc.List(testutil.TestContext(t), tc.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestGet_VisibilityScope(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc.DB, nil)
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "draft")

	stranger := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleEditor)
	_, err := svc.Get(testutil.TestContext(t), p.ID, stranger)
	assert.ErrorIs(t, err, proposals.ErrNotFound)

	got, err := svc.Get(testutil.TestContext(t), p.ID, tc.User)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestDelete_OwnerOnly(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc.DB, nil)
	assignee := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "")
	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "draft")

	revision, err := svc.AssignRevision(testutil.TestContext(t), p.ID, tc.User, assignee.Email)
	require.NoError(t, err)

	// The assignee sees the copy but cannot delete it: ownership stays with
	// the author.
	err = svc.Delete(testutil.TestContext(t), revision.ID, assignee)
	assert.ErrorIs(t, err, proposals.ErrNotOwner)

	require.NoError(t, svc.Delete(testutil.TestContext(t), p.ID, tc.User))
	_, err = svc.Get(testutil.TestContext(t), p.ID, tc.User)
	assert.ErrorIs(t, err, proposals.ErrNotFound)
}
