package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniflow/uniflow/internal/ai"
	"github.com/uniflow/uniflow/internal/api"
	"github.com/uniflow/uniflow/internal/api/dto"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/testutil"
)

func setupRouter(t *testing.T, gen ai.Generator) (*api.Router, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	router := api.NewRouter(api.RouterConfig{
		DB:          tc.DB,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		JWTService:  tc.JWTService,
		AuthService: auth.NewService(tc.DB, tc.JWTService),
		Generator:   gen,
	})

	return router, tc
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	router, tc := setupRouter(t, nil)
	defer tc.Cleanup()

	req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/proposals", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_ProposalLifecycle(t *testing.T) {
	gen := &testutil.StubGenerator{DraftOutput: "# Generated Draft\n\nRegenerated body."}
	router, tc := setupRouter(t, gen)
	defer tc.Cleanup()

	// Create
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals",
		map[string]string{"title": "Road Repairs", "content": "initial"}, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created dto.ProposalResponse
	testutil.ParseJSONResponse(t, rr, &created)
	assert.Equal(t, "Road Repairs", created.Title)
	assert.Equal(t, "draft", created.Status)

	// Iterate replaces content with the gateway output verbatim
	req = testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals/"+created.ID+"/iterate",
		map[string]interface{}{"user_input": "add a budget"}, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var iterated dto.ProposalResponse
	testutil.ParseJSONResponse(t, rr, &iterated)
	assert.Equal(t, gen.DraftOutput, iterated.Content)

	// Submit freezes the snapshot
	req = testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals/"+created.ID+"/submit_draft", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var submitted dto.SubmitResponse
	testutil.ParseJSONResponse(t, rr, &submitted)
	assert.True(t, submitted.Proposal.FinalDraft)
	assert.Equal(t, gen.DraftOutput, submitted.Proposal.ProposalRevision)

	// Publish once succeeds, twice conflicts
	req = testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals/"+created.ID+"/publish_tender", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var tender dto.TenderResponse
	testutil.ParseJSONResponse(t, rr, &tender)
	assert.Equal(t, created.ID, tender.ProposalID)

	req = testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals/"+created.ID+"/publish_tender", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// The tender shows up under the organization
	req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/active-tenders", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var tenderList []dto.TenderResponse
	testutil.ParseJSONResponse(t, rr, &tenderList)
	require.Len(t, tenderList, 1)
}

func TestRouter_ViewerGetsForbiddenOnMutations(t *testing.T) {
	gen := &testutil.StubGenerator{DraftOutput: "new"}
	router, tc := setupRouter(t, gen)
	defer tc.Cleanup()

	viewer := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleViewer)
	viewerToken := testutil.GenerateTestToken(t, tc.JWTService, viewer)
	p := testutil.CreateTestProposal(t, tc.DB, viewer.ID, "Tender", "content")

	for _, path := range []string{
		"/api/v1/proposals/" + p.ID.String() + "/iterate",
		"/api/v1/proposals/" + p.ID.String() + "/submit_draft",
		"/api/v1/proposals/" + p.ID.String() + "/assign",
		"/api/v1/proposals/" + p.ID.String() + "/publish_tender",
	} {
		req := testutil.AuthenticatedRequest(t, "POST", path,
			map[string]string{"user_input": "x", "email": "x@x.com"}, viewerToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code, "path %s", path)
	}

	// Reads still work for the viewer.
	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/proposals/"+p.ID.String(), nil, viewerToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// And the proposal was never mutated.
	var stored models.Proposal
	require.NoError(t, tc.DB.First(&stored, p.ID).Error)
	assert.Equal(t, "content", stored.Content)
	assert.False(t, stored.FinalDraft)
}

func TestRouter_IterateWithoutGateway(t *testing.T) {
	router, tc := setupRouter(t, nil)
	defer tc.Cleanup()

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "content")

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals/"+p.ID.String()+"/iterate",
		map[string]string{"user_input": "anything"}, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouter_ChatRejectsUnsupportedFile(t *testing.T) {
	gen := &testutil.StubGenerator{DraftOutput: "should never land"}
	router, tc := setupRouter(t, gen)
	defer tc.Cleanup()

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "untouched")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("message", "use this file"))
	fw, err := mw.CreateFormFile("files", "malware.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0x4d, 0x5a, 0x90})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/proposals/"+p.ID.String()+"/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, ".exe")

	// Validation failed before any model call, the document is untouched.
	assert.Empty(t, gen.DraftCalls)
	var stored models.Proposal
	require.NoError(t, tc.DB.First(&stored, p.ID).Error)
	assert.Equal(t, "untouched", stored.Content)
}

func TestRouter_MyRevisionsIsolation(t *testing.T) {
	router, tc := setupRouter(t, nil)
	defer tc.Cleanup()

	alice := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Legal", "")
	bob := testutil.CreateTestDepartmentUser(t, tc.DB, tc.Org, "Finance", "")
	aliceToken := testutil.GenerateTestToken(t, tc.JWTService, alice)
	bobToken := testutil.GenerateTestToken(t, tc.JWTService, bob)

	p := testutil.CreateTestProposal(t, tc.DB, tc.User.ID, "Tender", "draft")

	for _, email := range []string{alice.Email, bob.Email} {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/proposals/"+p.ID.String()+"/assign",
			map[string]string{"email": email}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	for token, email := range map[string]string{aliceToken: alice.Email, bobToken: bob.Email} {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/my-revisions", nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var revisions []dto.ProposalResponse
		testutil.ParseJSONResponse(t, rr, &revisions)
		require.Len(t, revisions, 1)
		assert.Equal(t, email, revisions[0].AssignedToEmail)
	}
}

func TestRouter_MemberManagementNeedsAdmin(t *testing.T) {
	router, tc := setupRouter(t, nil)
	defer tc.Cleanup()

	editor := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleEditor)
	editorToken := testutil.GenerateTestToken(t, tc.JWTService, editor)
	orgPath := "/api/v1/organizations/" + tc.Org.ID.String()

	// Any member can read the roster.
	req := testutil.AuthenticatedRequest(t, "GET", orgPath+"/members", nil, editorToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Role changes need admin or owner.
	req = testutil.AuthenticatedRequest(t, "PATCH", orgPath+"/members/"+editor.ID.String(),
		map[string]string{"role": "admin"}, editorToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = testutil.AuthenticatedRequest(t, "PATCH", orgPath+"/members/"+editor.ID.String(),
		map[string]string{"role": "admin"}, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var member dto.MemberResponse
	testutil.ParseJSONResponse(t, rr, &member)
	assert.Equal(t, "admin", member.Role)
}

func TestRouter_Health(t *testing.T) {
	router, tc := setupRouter(t, nil)
	defer tc.Cleanup()

	req := testutil.UnauthenticatedRequest(t, "GET", "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	services := resp["services"].(map[string]interface{})
	assert.Equal(t, "healthy", services["database"])
	assert.Equal(t, "not_configured", services["ai"])
}
