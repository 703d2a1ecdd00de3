package plan

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/plan"
)

type Handler struct {
	service *plan.Service
	loc     *time.Location
}

func NewHandler(service *plan.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterScopedRoutes(r *gin.RouterGroup) {
	group := r.Group("/plans")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.DELETE("/:id", h.Delete)
		group.POST("/:id/activate", h.Activate)
		group.GET("/:id/calendar.ics", h.Calendar)
	}
}

type createPlanRequest struct {
	Name      string               `json:"name" binding:"required"`
	Medicines []model.PlanMedicine `json:"medicines" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Create(c.Request.Context(), patient.ID, &model.CustomPlan{
		Name:      req.Name,
		Medicines: req.Medicines,
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) List(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	plans, err := h.service.List(c.Request.Context(), patient.ID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(plans))
}

func (h *Handler) Delete(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid plan ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), patient.ID, id); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// Activate inserts one reminder per plan medicine, skipping duplicates, and
// reports how many were created.
func (h *Handler) Activate(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid plan ID"))
		return
	}

	created, err := h.service.Activate(c.Request.Context(), patient.ID, id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"reminders_created": created}))
}

// Calendar serves the plan as an iCalendar feed.
func (h *Handler) Calendar(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid plan ID"))
		return
	}

	p, err := h.service.Get(c.Request.Context(), patient.ID, id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	feed := plan.Calendar(p, h.loc, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+p.Name+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
