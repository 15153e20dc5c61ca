package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/superstorecomercio/novoguia-notifier/internal/handler"
	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	"github.com/superstorecomercio/novoguia-notifier/internal/service/dispatcher"
	"github.com/superstorecomercio/novoguia-notifier/internal/service/enqueuer"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
)

// Handler exposes the manual "run now" triggers and the operator
// inspection endpoint.
type Handler struct {
	dispatcher    *dispatcher.Service
	enqueuer      *enqueuer.Service
	notifications repository.NotificationRepository
}

func NewHandler(d *dispatcher.Service, e *enqueuer.Service, notifications repository.NotificationRepository) *Handler {
	return &Handler{
		dispatcher:    d,
		enqueuer:      e,
		notifications: notifications,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pipeline := r.Group("/pipeline")
	{
		pipeline.POST("/dispatch", h.Dispatch)
		pipeline.POST("/scan", h.Scan)
		pipeline.POST("/send", h.SendDirect)
	}
	r.GET("/notifications/:trackingCode", h.GetNotification)
}

type dispatchRequest struct {
	Types []string `json:"types"`
	Limit int      `json:"limit" binding:"omitempty,min=1,max=500"`
}

// Dispatch runs one delivery batch now, with an optional batch-size
// override and type restriction.
func (h *Handler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.dispatcher.RunBatch(c.Request.Context(), req.Types, req.Limit)
	if err != nil {
		handler.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	handler.Success(c, http.StatusOK, result)
}

// Scan runs the enqueue scan now.
func (h *Handler) Scan(c *gin.Context) {
	result, err := h.enqueuer.Scan(c.Request.Context())
	if err != nil {
		handler.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	handler.Success(c, http.StatusOK, result)
}

type sendRequest struct {
	NotificationType string  `json:"notification_type" binding:"required"`
	QuoteRequestID   *string `json:"quote_request_id"`
	CampaignID       *string `json:"campaign_id"`
	CompanyID        *string `json:"company_id"`
	Recipient        string  `json:"recipient" binding:"required,email"`
}

// SendDirect synchronously renders and delivers one notification, for
// types triggered directly by user actions.
func (h *Handler) SendDirect(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	rec := &model.NotificationRecord{
		NotificationType: req.NotificationType,
		RecipientAddress: req.Recipient,
	}
	var err error
	if rec.QuoteRequestID, err = parseRef(req.QuoteRequestID); err != nil {
		handler.Error(c, http.StatusBadRequest, apperrors.BadRequest("invalid quote request ID", err).Error())
		return
	}
	if rec.CampaignID, err = parseRef(req.CampaignID); err != nil {
		handler.Error(c, http.StatusBadRequest, apperrors.BadRequest("invalid campaign ID", err).Error())
		return
	}
	if rec.CompanyID, err = parseRef(req.CompanyID); err != nil {
		handler.Error(c, http.StatusBadRequest, apperrors.BadRequest("invalid company ID", err).Error())
		return
	}
	if err := rec.Tuple().Validate(); err != nil {
		handler.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.dispatcher.SendDirect(c.Request.Context(), rec)
	if err != nil {
		handler.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	handler.Success(c, http.StatusOK, detail)
}

// GetNotification returns the stored record for a tracking code.
func (h *Handler) GetNotification(c *gin.Context) {
	code := c.Param("trackingCode")

	rec, err := h.notifications.FindByTrackingCode(c.Request.Context(), code)
	if err != nil {
		handler.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		handler.Error(c, http.StatusNotFound, apperrors.NotFound("notification", nil).Error())
		return
	}
	handler.Success(c, http.StatusOK, rec)
}

func parseRef(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
