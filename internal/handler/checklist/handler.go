package checklist

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/checklist"
)

type Handler struct {
	service *checklist.Service
}

func NewHandler(service *checklist.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterScopedRoutes(r *gin.RouterGroup) {
	group := r.Group("/checklist")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/due", h.DueStates)
		group.DELETE("/:id", h.Delete)
		group.POST("/:id/log", h.LogQuickDose)
		group.POST("/:id/stock", h.AdjustStock)
	}
}

type createItemRequest struct {
	Name              string                  `json:"name" binding:"required"`
	Dose              string                  `json:"dose"`
	Unit              string                  `json:"unit"`
	Category          model.ChecklistCategory `json:"category" binding:"required"`
	Schedule          string                  `json:"schedule"`
	Times             []string                `json:"times"`
	Description       string                  `json:"description"`
	IsCustom          bool                    `json:"is_custom"`
	Stock             *float64                `json:"stock"`
	LowStockThreshold *float64                `json:"low_stock_threshold"`
}

func (h *Handler) Create(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.service.Create(c.Request.Context(), patient.ID, &model.ChecklistItem{
		Name:              req.Name,
		Dose:              req.Dose,
		Unit:              req.Unit,
		Category:          req.Category,
		Schedule:          req.Schedule,
		Times:             pq.StringArray(req.Times),
		Description:       req.Description,
		IsCustom:          req.IsCustom,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(item))
}

func (h *Handler) List(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	items, err := h.service.List(c.Request.Context(), patient.ID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

// DueStates returns every item with its due state at the current instant.
func (h *Handler) DueStates(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	states, err := h.service.EvaluateAll(c.Request.Context(), patient.ID, time.Now())
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(states))
}

func (h *Handler) Delete(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid checklist item ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), patient.ID, id); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

type quickDoseRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Unit   string  `json:"unit"`
}

func (h *Handler) LogQuickDose(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid checklist item ID"))
		return
	}

	var req quickDoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.service.LogQuickDose(c.Request.Context(), patient.ID, id, req.Amount, req.Unit)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(entry))
}

type adjustStockRequest struct {
	Delta float64 `json:"delta" binding:"required"`
}

func (h *Handler) AdjustStock(c *gin.Context) {
	patient := c.MustGet("patient").(*model.Patient)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid checklist item ID"))
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.AdjustStock(c.Request.Context(), patient.ID, id, req.Delta); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
