package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/access"
	"github.com/omsorg/care-api/internal/service/patient"
	"github.com/omsorg/care-api/internal/service/session"
)

type Handler struct {
	service       *patient.Service
	accessService *access.Service
}

func NewHandler(service *patient.Service, accessService *access.Service) *Handler {
	return &Handler{service: service, accessService: accessService}
}

// RegisterRoutes mounts endpoints that need a session but not yet patient
// access: listing, creation and the access-request flow.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.POST("/:patientId/access-requests", h.RequestAccess)
	}
}

// RegisterScopedRoutes mounts endpoints behind the patient access check.
func (h *Handler) RegisterScopedRoutes(r *gin.RouterGroup) {
	r.GET("", h.GetPatient)
	r.PUT("", h.UpdatePatient)
	r.GET("/access-requests", h.ListAccessRequests)
	r.POST("/access-requests/:requestId/approve", h.ApproveAccess)
	r.POST("/access-requests/:requestId/deny", h.DenyAccess)
}

type createPatientRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	Needs           string `json:"needs"`
	BirthDate       string `json:"birth_date"`
	MedicationNotes string `json:"medication_notes"`
}

func (h *Handler) CreatePatient(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Create(c.Request.Context(), user, &model.Patient{
		Name:            req.Name,
		Description:     req.Description,
		Needs:           req.Needs,
		BirthDate:       req.BirthDate,
		MedicationNotes: req.MedicationNotes,
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListPatients(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	patients, err := h.accessService.ListAccessible(c.Request.Context(), user)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) GetPatient(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(c.MustGet("patient")))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}
	current := c.MustGet("patient").(*model.Patient)

	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), user, &model.Patient{
		ID:              current.ID,
		Name:            req.Name,
		Description:     req.Description,
		Needs:           req.Needs,
		BirthDate:       req.BirthDate,
		MedicationNotes: req.MedicationNotes,
	})
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

// RequestAccess is reachable without patient access: it is how a caregiver
// without access asks for it.
func (h *Handler) RequestAccess(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	req, err := h.accessService.RequestAccess(c.Request.Context(), user, patientID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(req))
}

func (h *Handler) ListAccessRequests(c *gin.Context) {
	user, _ := session.UserFrom(c.Request.Context())
	patient := c.MustGet("patient").(*model.Patient)

	requests, err := h.accessService.ListPending(c.Request.Context(), user, patient.ID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) ApproveAccess(c *gin.Context) {
	user, _ := session.UserFrom(c.Request.Context())
	patient := c.MustGet("patient").(*model.Patient)

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	if err := h.accessService.Approve(c.Request.Context(), user, patient.ID, requestID); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) DenyAccess(c *gin.Context) {
	user, _ := session.UserFrom(c.Request.Context())
	patient := c.MustGet("patient").(*model.Patient)

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	if err := h.accessService.Deny(c.Request.Context(), user, patient.ID, requestID); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
