package push

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/push"
	"github.com/omsorg/care-api/internal/repository"
	"github.com/omsorg/care-api/internal/scheduler"
	"github.com/omsorg/care-api/pkg/logger"
)

// Handler exposes the delivery-token registry and the manual test triggers.
// These endpoints are process-wide, not patient scoped.
type Handler struct {
	tokens    repository.TokenRepository
	sender    push.Sender
	scheduler *scheduler.ServerScheduler
	logger    *logger.Logger
}

func NewHandler(tokens repository.TokenRepository, sender push.Sender, sched *scheduler.ServerScheduler, logger *logger.Logger) *Handler {
	return &Handler{tokens: tokens, sender: sender, scheduler: sched, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/push/tokens", h.SaveDeliveryToken)
	r.POST("/push/test", h.SendTestPush)
	r.GET("/push/status", h.PushStatus)
	r.POST("/reports/test", h.SendTestReport)
}

type saveTokenRequest struct {
	Token  string `json:"token" binding:"required"`
	UserID string `json:"userId"`
}

// SaveDeliveryToken upserts a push endpoint keyed by the token value.
func (h *Handler) SaveDeliveryToken(c *gin.Context) {
	var req saveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token := &model.DeliveryToken{Token: req.Token}
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
			return
		}
		token.UserID = &id
	}

	if err := h.tokens.Upsert(c.Request.Context(), token); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendTestPush multicasts an ad-hoc message to every registered token and
// prunes the ones the provider reports as gone.
func (h *Handler) SendTestPush(c *gin.Context) {
	ctx := c.Request.Context()

	tokens, err := h.tokens.List(ctx)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	if len(tokens) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": false, "tokenCount": 0, "successCount": 0, "failureCount": 0,
		})
		return
	}

	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = t.Token
	}

	results, err := h.sender.Send(ctx, values, push.Message{
		Title: "Testvarsel",
		Body:  "Push-varsler fungerer",
		Data:  map[string]string{"type": "test"},
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	successCount, failureCount := 0, 0
	for _, r := range results {
		if r.Err == nil {
			successCount++
			continue
		}
		failureCount++
		if r.Invalid {
			if err := h.tokens.Delete(ctx, r.Token); err != nil {
				h.logger.Error(err, "failed to prune delivery token")
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      failureCount == 0,
		"tokenCount":   len(tokens),
		"successCount": successCount,
		"failureCount": failureCount,
	})
}

func (h *Handler) PushStatus(c *gin.Context) {
	count, latest, err := h.tokens.Status(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	resp := gin.H{"tokenCount": count}
	if latest != nil {
		resp["latestUpdatedAt"] = latest.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// SendTestReport triggers the daily report on demand. Safe alongside a
// scheduled run; report generation is read-only.
func (h *Handler) SendTestReport(c *gin.Context) {
	result, err := h.scheduler.GenerateAndSendReport(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"emailId":    result.EmailID,
		"recipients": result.Recipients,
	})
}
