package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"tradie_legal_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCaseHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)

	_, c, rec := setupEcho(http.MethodPost, "/api/cases", jsonBody(`{
		"title": "Unpaid retention money",
		"issue_type": "payment_dispute",
		"state": "QLD",
		"claimed_amount": 9500
	}`))
	asUser(c, user)

	require.NoError(t, CreateCaseHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Case
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.UserID)
	assert.Contains(t, resp.CaseNumber, "TS-")
	assert.Equal(t, models.CaseStatusActive, resp.Status)
}

func TestCreateCaseHandlerEnforcesFreeTier(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)

	for i := 0; i < models.FreeTierLimit; i++ {
		_, c, rec := setupEcho(http.MethodPost, "/api/cases", jsonBody(`{
			"title": "Dispute",
			"issue_type": "payment_dispute",
			"state": "QLD"
		}`))
		asUser(c, user)
		require.NoError(t, CreateCaseHandler(c))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// The next creation is rejected with 402
	_, c, _ := setupEcho(http.MethodPost, "/api/cases", jsonBody(`{
		"title": "One too many",
		"issue_type": "payment_dispute",
		"state": "QLD"
	}`))
	asUser(c, user)
	assert.Equal(t, http.StatusPaymentRequired, httpCode(t, CreateCaseHandler(c)))

	// A subscriber is not limited
	expires := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, testDB.Create(&models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		ExpiresAt: &expires,
	}).Error)

	_, c, rec := setupEcho(http.MethodPost, "/api/cases", jsonBody(`{
		"title": "Subscriber case",
		"issue_type": "payment_dispute",
		"state": "QLD"
	}`))
	asUser(c, user)
	require.NoError(t, CreateCaseHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListCasesHandlerScopes(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	other := createHandlerUser(t, testDB, "other@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)

	createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")
	createHandlerCase(t, testDB, other.ID, "TS-2026-00002")

	list := func(user *models.User) []models.Case {
		_, c, rec := setupEcho(http.MethodGet, "/api/cases", nil)
		asUser(c, user)
		require.NoError(t, ListCasesHandler(c))
		var cases []models.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
		return cases
	}

	assert.Len(t, list(owner), 1)
	assert.Len(t, list(admin), 2)
}

func TestGetCaseHandlerHidesUnreleasedDocuments(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	for _, status := range []string{models.GeneratedDocStatusPendingReview, models.GeneratedDocStatusSent} {
		require.NoError(t, testDB.Create(&models.GeneratedDocument{
			CaseID: caseRecord.ID,
			Type:   models.GeneratedDocTypeStrategyLetter,
			Title:  "Doc " + status,
			Status: status,
		}).Error)
	}

	get := func(user *models.User) models.Case {
		_, c, rec := setupEcho(http.MethodGet, "/api/cases/"+caseRecord.ID, nil)
		c.SetParamNames("id")
		c.SetParamValues(caseRecord.ID)
		asUser(c, user)
		require.NoError(t, GetCaseHandler(c))
		var resp models.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	// The owner sees only the sent document, the admin both
	assert.Len(t, get(owner).GeneratedDocuments, 1)
	assert.Equal(t, models.GeneratedDocStatusSent, get(owner).GeneratedDocuments[0].Status)
	assert.Len(t, get(admin).GeneratedDocuments, 2)
}

func TestGetCaseHandlerForbidsOtherUsers(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	other := createHandlerUser(t, testDB, "other@example.com", models.RoleClient)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	_, c, _ := setupEcho(http.MethodGet, "/api/cases/"+caseRecord.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asUser(c, other)

	assert.Equal(t, http.StatusForbidden, httpCode(t, GetCaseHandler(c)))
}

func TestUpdateCaseStatusHandler(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	_, c, rec := setupEcho(http.MethodPut, "/api/cases/"+caseRecord.ID+"/status", jsonBody(`{"status":"resolved"}`))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asUser(c, owner)

	require.NoError(t, UpdateCaseStatusHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stored models.Case
	require.NoError(t, testDB.First(&stored, "id = ?", caseRecord.ID).Error)
	assert.Equal(t, models.CaseStatusResolved, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestUpdateCaseStatusHandlerRejectsUnknownStatus(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	_, c, _ := setupEcho(http.MethodPut, "/api/cases/"+caseRecord.ID+"/status", jsonBody(`{"status":"abandoned"}`))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asUser(c, owner)

	assert.Equal(t, http.StatusBadRequest, httpCode(t, UpdateCaseStatusHandler(c)))
}

func TestGenerateDocumentHandler(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	_, c, rec := setupEcho(http.MethodPost, "/api/admin/cases/"+caseRecord.ID+"/documents", jsonBody(`{
		"type": "demand_letter",
		"title": "Letter of Demand"
	}`))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asUser(c, admin)

	require.NoError(t, GenerateDocumentHandler(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp models.GeneratedDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.GeneratedDocStatusDraft, resp.Status)

	// The drafting task is queued for the worker
	var tasks int64
	require.NoError(t, testDB.Model(&models.OutboxTask{}).
		Where("kind = ?", models.TaskKindGenerateStrategy).Count(&tasks).Error)
	assert.Equal(t, int64(1), tasks)
}

func TestGenerateDocumentHandlerRejectsUnknownType(t *testing.T) {
	testDB := setupTestDB(t)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)

	_, c, _ := setupEcho(http.MethodPost, "/api/admin/cases/x/documents", jsonBody(`{
		"type": "ransom_note",
		"title": "No"
	}`))
	c.SetParamNames("id")
	c.SetParamValues("x")
	asUser(c, admin)

	assert.Equal(t, http.StatusBadRequest, httpCode(t, GenerateDocumentHandler(c)))
}
