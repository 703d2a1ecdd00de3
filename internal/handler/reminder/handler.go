package reminder

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/reminder"
	apperrors "github.com/omsorg/care-api/pkg/errors"
)

type Handler struct {
	service *reminder.Service
}

func NewHandler(service *reminder.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterScopedRoutes(r *gin.RouterGroup) {
	group := r.Group("/reminders")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}

type reminderRequest struct {
	Name  string `json:"name" binding:"required"`
	Time  string `json:"time" binding:"required"`
	Force bool   `json:"force"`
}

// Create inserts a reminder. A duplicate name+time yields a warning the
// client can override by retrying with force.
func (h *Handler) Create(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entity := &model.Reminder{Name: req.Name, Time: req.Time}

	var created *model.Reminder
	var err error
	if req.Force {
		created, err = h.service.CreateForced(c.Request.Context(), patient.ID, entity)
	} else {
		created, err = h.service.Create(c.Request.Context(), patient.ID, entity)
	}
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, handler.NewWarningResponse(err.Error(), nil))
			return
		}
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) List(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	reminders, err := h.service.List(c.Request.Context(), patient.ID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(reminders))
}

func (h *Handler) Update(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reminder ID"))
		return
	}

	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), patient.ID, &model.Reminder{
		ID:   id,
		Name: req.Name,
		Time: req.Time,
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Delete(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reminder ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), patient.ID, id); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
