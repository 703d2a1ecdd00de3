package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/service/auth"
	"github.com/omsorg/care-api/internal/service/session"
)

type Handler struct {
	service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/register", h.Register)
		group.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts the endpoints requiring a session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.GET("/me", h.Me)
		group.PUT("/subscriptions", h.UpdateSubscriptions)
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{"user": user, "token": token}))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"user": user, "token": token}))
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}

type subscriptionsRequest struct {
	MissedDoseAlerts bool `json:"missed_dose_alerts"`
	DailyReports     bool `json:"daily_reports"`
}

func (h *Handler) UpdateSubscriptions(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	var req subscriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.UpdateSubscriptions(c.Request.Context(), user, req.MissedDoseAlerts, req.DailyReports); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}
