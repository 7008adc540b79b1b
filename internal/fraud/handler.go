package fraud

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/givestream/donation-platform/pkg/common"
	"github.com/givestream/donation-platform/pkg/validation"
)

// Handler handles HTTP requests for the fraud engine
type Handler struct {
	service         *Service
	trustWindowSize int
}

// NewHandler creates a new fraud handler
func NewHandler(service *Service, trustWindowSize int) *Handler {
	return &Handler{service: service, trustWindowSize: trustWindowSize}
}

// ScoreDonationRequest is the payload for scoring an incoming donation
type ScoreDonationRequest struct {
	DonorID     uuid.UUID  `json:"donorId" binding:"required"`
	NonprofitID uuid.UUID  `json:"nonprofitId" binding:"required"`
	Amount      float64    `json:"amount" binding:"required,gt=0"`
	Timestamp   *time.Time `json:"timestamp"`
}

// OverrideStatusRequest is the payload for a manual status override
type OverrideStatusRequest struct {
	Status        TransactionStatus `json:"status" binding:"required"`
	ReviewerNotes string            `json:"reviewerNotes"`
	ReviewedBy    uuid.UUID         `json:"reviewedBy" binding:"required"`
}

// ScoreDonation scores a donation and persists the resulting transaction
func (h *Handler) ScoreDonation(c *gin.Context) {
	var req ScoreDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	candidate := DonationCandidate{
		DonorID:     req.DonorID,
		NonprofitID: req.NonprofitID,
		Amount:      req.Amount,
	}
	if req.Timestamp != nil {
		candidate.Timestamp = *req.Timestamp
	}

	tx, result, err := h.service.ScoreDonation(c.Request.Context(), candidate)
	if err != nil {
		respondError(c, err, "failed to score donation")
		return
	}

	common.CreatedResponse(c, gin.H{
		"fraudScore":  result.FraudScore,
		"reasons":     result.Reasons,
		"status":      result.Status,
		"transaction": tx,
	})
}

// RecomputeTrust runs a trust update over the nonprofit's recent window
func (h *Handler) RecomputeTrust(c *gin.Context) {
	nonprofitID, err := uuid.Parse(c.Param("nonprofit_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid nonprofit ID")
		return
	}

	update, err := h.service.RecomputeTrust(c.Request.Context(), nonprofitID, h.trustWindowSize)
	if err != nil {
		respondError(c, err, "failed to recompute trust")
		return
	}

	common.SuccessResponse(c, update)
}

// GetDonorAnalytics returns the analytics view for a nonprofit
func (h *Handler) GetDonorAnalytics(c *gin.Context) {
	nonprofitID, err := uuid.Parse(c.Param("nonprofit_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid nonprofit ID")
		return
	}

	analytics, err := h.service.GetDonorAnalytics(c.Request.Context(), nonprofitID)
	if err != nil {
		respondError(c, err, "failed to load donor analytics")
		return
	}

	common.SuccessResponse(c, analytics)
}

// OverrideStatus applies a manual transaction status change
func (h *Handler) OverrideStatus(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	var req OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	tx, err := h.service.OverrideTransactionStatus(c.Request.Context(), transactionID, StatusOverride{
		Status:        req.Status,
		ReviewerNotes: req.ReviewerNotes,
		ReviewedBy:    req.ReviewedBy,
	})
	if err != nil {
		respondError(c, err, "failed to override transaction status")
		return
	}

	common.SuccessResponse(c, tx)
}

// RegisterRoutes registers fraud engine routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	fraud := rg.Group("/fraud")
	{
		fraud.POST("/score", h.ScoreDonation)
		fraud.POST("/nonprofits/:nonprofit_id/trust/recompute", h.RecomputeTrust)
		fraud.GET("/nonprofits/:nonprofit_id/analytics", h.GetDonorAnalytics)
		fraud.PATCH("/transactions/:id/status", h.OverrideStatus)
	}
}

func respondError(c *gin.Context, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

func bindErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return validation.NewValidationError(validationErrs).Error()
	}
	return err.Error()
}
