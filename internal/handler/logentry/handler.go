package logentry

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/eventlog"
)

type Handler struct {
	service *eventlog.Service
	loc     *time.Location
}

func NewHandler(service *eventlog.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterScopedRoutes(r *gin.RouterGroup) {
	logs := r.Group("/logs")
	{
		logs.POST("", h.Append)
		logs.GET("", h.ListByDay)
		logs.DELETE("/:id", h.Delete)
	}
}

type appendRequest struct {
	Type      model.LogType `json:"type" binding:"required"`
	Timestamp int64         `json:"timestamp"`
	Name      string        `json:"name"`
	Amount    float64       `json:"amount"`
	Unit      string        `json:"unit"`
	Notes     string        `json:"notes"`
	Extra     model.JSONMap `json:"extra"`
}

func (h *Handler) Append(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.service.Append(c.Request.Context(), patient.ID, &model.LogEntry{
		Type:      req.Type,
		Timestamp: req.Timestamp,
		Name:      req.Name,
		Amount:    req.Amount,
		Unit:      req.Unit,
		Notes:     req.Notes,
		Extra:     req.Extra,
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(entry))
}

// ListByDay returns one day's entries; the day defaults to today. Today
// views want newest first, report-style consumers pass order=asc.
func (h *Handler) ListByDay(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	day := time.Now()
	if q := c.Query("date"); q != "" {
		parsed, err := time.ParseInLocation("2006-01-02", q, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	ascending := c.Query("order") == "asc"

	entries, err := h.service.ListByDay(c.Request.Context(), patient.ID, day, ascending)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) Delete(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid log entry ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), patient.ID, id); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
