package fraud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/givestream/donation-platform/pkg/common"
)

func setupRouter(transactions *mockTransactionStore, trust *mockTrustStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(newTestService(transactions, trust), 50)
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestHandlerScoreDonationNewDonor(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	nonprofitID := uuid.New()
	transactions.On("ListForNonprofit", mock.Anything, nonprofitID).Return([]*Transaction{}, nil).Once()
	trust.On("GetTrustRecord", mock.Anything, nonprofitID).
		Return(nil, common.NewNotFoundError("trust record not found", nil)).Once()
	transactions.On("CreateTransaction", mock.Anything, mock.AnythingOfType("*fraud.Transaction")).Return(nil).Once()

	rec := performJSON(t, router, http.MethodPost, "/api/v1/fraud/score", gin.H{
		"donorId":     uuid.New(),
		"nonprofitId": nonprofitID,
		"amount":      100,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])

	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, 0.5, data["fraudScore"])
	assert.Equal(t, "under_review", data["status"])
	assert.Equal(t, []interface{}{NewDonorReason}, data["reasons"])
	assert.NotNil(t, data["transaction"])

	transactions.AssertExpectations(t)
	trust.AssertExpectations(t)
}

func TestHandlerScoreDonationRejectsInvalidBody(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	tests := []struct {
		name string
		body gin.H
	}{
		{"negative amount", gin.H{"donorId": uuid.New(), "nonprofitId": uuid.New(), "amount": -5}},
		{"missing nonprofit", gin.H{"donorId": uuid.New(), "amount": 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performJSON(t, router, http.MethodPost, "/api/v1/fraud/score", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			envelope := decodeEnvelope(t, rec)
			assert.Equal(t, false, envelope["success"])
		})
	}

	transactions.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestHandlerGetDonorAnalytics(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	nonprofitID := uuid.New()
	transactions.On("ListForNonprofit", mock.Anything, nonprofitID).Return([]*Transaction{}, nil).Once()
	transactions.On("ListRecentForNonprofit", mock.Anything, nonprofitID, recentActivityLimit).
		Return([]*Transaction{}, nil).Once()

	rec := performJSON(t, router, http.MethodGet, "/api/v1/fraud/nonprofits/"+nonprofitID.String()+"/analytics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})

	assert.Nil(t, data["donorProfile"])
	assert.Equal(t, []interface{}{}, data["recentActivity"])
	assert.Equal(t, "low", data["riskAssessment"])
	assert.Equal(t, []interface{}{"No donation history for this nonprofit yet"}, data["insights"])
}

func TestHandlerGetDonorAnalyticsInvalidID(t *testing.T) {
	router := setupRouter(new(mockTransactionStore), new(mockTrustStore))

	rec := performJSON(t, router, http.MethodGet, "/api/v1/fraud/nonprofits/not-a-uuid/analytics", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRecomputeTrust(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	record := trustRecord(0.85, TrustLevelNormal)
	transactions.On("ListRecentForNonprofit", mock.Anything, record.NonprofitID, 50).
		Return(window(12, StatusCompleted, 0.1), nil).Once()
	trust.On("GetTrustRecord", mock.Anything, record.NonprofitID).Return(record, nil).Once()
	trust.On("SaveTrustRecord", mock.Anything, mock.Anything).Return(nil).Once()

	rec := performJSON(t, router, http.MethodPost,
		"/api/v1/fraud/nonprofits/"+record.NonprofitID.String()+"/trust/recompute", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})

	assert.InDelta(t, 0.995, data["trustScore"].(float64), 1e-9)
	assert.Equal(t, "normal", data["trustLevel"])

	metrics := data["metrics"].(map[string]interface{})
	assert.Equal(t, float64(12), metrics["totalTransactions"])
}

func TestHandlerRecomputeTrustMissingRecord(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	nonprofitID := uuid.New()
	transactions.On("ListRecentForNonprofit", mock.Anything, nonprofitID, 50).
		Return(window(12, StatusCompleted, 0.1), nil).Once()
	trust.On("GetTrustRecord", mock.Anything, nonprofitID).
		Return(nil, common.NewNotFoundError("trust record not found", nil)).Once()

	rec := performJSON(t, router, http.MethodPost,
		"/api/v1/fraud/nonprofits/"+nonprofitID.String()+"/trust/recompute", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
}

func TestHandlerOverrideStatus(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	transactionID := uuid.New()
	reviewer := uuid.New()
	stored := &Transaction{ID: transactionID, Status: StatusFlagged, FraudScore: 0.55}

	transactions.On("GetTransaction", mock.Anything, transactionID).Return(stored, nil).Once()
	transactions.On("UpdateTransactionStatus",
		mock.Anything, transactionID, StatusCompleted, "verified with donor", reviewer, testNow).
		Return(nil).Once()

	rec := performJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/fraud/transactions/%s/status", transactionID), gin.H{
			"status":        "completed",
			"reviewerNotes": "verified with donor",
			"reviewedBy":    reviewer,
		})

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, "verified with donor", data["reviewerNotes"])

	transactions.AssertExpectations(t)
}

func TestHandlerOverrideStatusMissingTransaction(t *testing.T) {
	transactions := new(mockTransactionStore)
	trust := new(mockTrustStore)
	router := setupRouter(transactions, trust)

	transactionID := uuid.New()
	transactions.On("GetTransaction", mock.Anything, transactionID).
		Return(nil, common.NewNotFoundError("transaction not found", nil)).Once()

	rec := performJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/fraud/transactions/%s/status", transactionID), gin.H{
			"status":     "completed",
			"reviewedBy": uuid.New(),
		})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
