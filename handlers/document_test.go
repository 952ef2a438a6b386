package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"tradie_legal_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedGeneratedDocument(t *testing.T, testDB *gorm.DB, caseID, status string) *models.GeneratedDocument {
	doc := &models.GeneratedDocument{
		CaseID:  caseID,
		Type:    models.GeneratedDocTypeStrategyLetter,
		Title:   "Legal Strategy Letter",
		Status:  status,
		Content: "<p>Strategy</p>",
	}
	require.NoError(t, testDB.Create(doc).Error)
	return doc
}

func TestGetGeneratedDocumentHandlerVisibility(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	other := createHandlerUser(t, testDB, "other@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	pending := seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusPendingReview)
	sent := seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusSent)

	get := func(user *models.User, docID string) error {
		_, c, _ := setupEcho(http.MethodGet, "/api/documents/"+docID, nil)
		c.SetParamNames("id")
		c.SetParamValues(docID)
		asUser(c, user)
		return GetGeneratedDocumentHandler(c)
	}

	// The owner sees a released document
	require.NoError(t, get(owner, sent.ID))

	// An unreleased document reads as not found to the owner, so its
	// existence is not leaked
	assert.Equal(t, http.StatusNotFound, httpCode(t, get(owner, pending.ID)))

	// A stranger is forbidden even for released documents
	assert.Equal(t, http.StatusForbidden, httpCode(t, get(other, sent.ID)))

	// Admins see every state
	require.NoError(t, get(admin, pending.ID))
}

func TestListReviewQueueHandler(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")

	seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusDraft)
	seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusPendingReview)
	seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusSent)

	_, c, rec := setupEcho(http.MethodGet, "/api/admin/documents", nil)
	asUser(c, admin)

	require.NoError(t, ListReviewQueueHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var docs []models.GeneratedDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	assert.Len(t, docs, 2) // sent documents are out of the queue
}

func TestReviewAndSendDocumentHandlers(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")
	doc := seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusPendingReview)

	// 1. Sending before approval conflicts
	_, c, _ := setupEcho(http.MethodPost, "/api/admin/documents/"+doc.ID+"/send", nil)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID)
	asUser(c, admin)
	assert.Equal(t, http.StatusConflict, httpCode(t, SendDocumentHandler(c)))

	// 2. Approve
	_, c, rec := setupEcho(http.MethodPut, "/api/admin/documents/"+doc.ID+"/review",
		jsonBody(`{"status":"approved","note":"Reads well"}`))
	c.SetParamNames("id")
	c.SetParamValues(doc.ID)
	asUser(c, admin)
	require.NoError(t, ReviewDocumentHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 3. Send releases it to the owner
	_, c, rec = setupEcho(http.MethodPost, "/api/admin/documents/"+doc.ID+"/send", nil)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID)
	asUser(c, admin)
	require.NoError(t, SendDocumentHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stored models.GeneratedDocument
	require.NoError(t, testDB.First(&stored, "id = ?", doc.ID).Error)
	assert.Equal(t, models.GeneratedDocStatusSent, stored.Status)

	// The owner was notified and the case progress moved
	var notifications int64
	require.NoError(t, testDB.Model(&models.Notification{}).
		Where("user_id = ?", owner.ID).Count(&notifications).Error)
	assert.Equal(t, int64(1), notifications)

	var storedCase models.Case
	require.NoError(t, testDB.First(&storedCase, "id = ?", caseRecord.ID).Error)
	assert.Equal(t, models.ProgressDocumentSent, storedCase.Progress)
}

func TestUpdateDocumentContentHandler(t *testing.T) {
	testDB := setupTestDB(t)
	owner := createHandlerUser(t, testDB, "owner@example.com", models.RoleClient)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)
	caseRecord := createHandlerCase(t, testDB, owner.ID, "TS-2026-00001")
	doc := seedGeneratedDocument(t, testDB, caseRecord.ID, models.GeneratedDocStatusPendingReview)

	_, c, rec := setupEcho(http.MethodPut, "/api/admin/documents/"+doc.ID,
		jsonBody(`{"content":"<p>Edited</p><script>x()</script>"}`))
	c.SetParamNames("id")
	c.SetParamValues(doc.ID)
	asUser(c, admin)

	require.NoError(t, UpdateDocumentContentHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stored models.GeneratedDocument
	require.NoError(t, testDB.First(&stored, "id = ?", doc.ID).Error)
	assert.Equal(t, "<p>Edited</p>", stored.Content) // sanitized
}

func TestUpdateDocumentContentHandlerRequiresContent(t *testing.T) {
	testDB := setupTestDB(t)
	admin := createHandlerUser(t, testDB, "admin@example.com", models.RoleAdmin)

	_, c, _ := setupEcho(http.MethodPut, "/api/admin/documents/x", jsonBody(`{"content":""}`))
	c.SetParamNames("id")
	c.SetParamValues("x")
	asUser(c, admin)

	assert.Equal(t, http.StatusBadRequest, httpCode(t, UpdateDocumentContentHandler(c)))
}
