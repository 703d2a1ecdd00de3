package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/handler"
	"github.com/omsorg/care-api/internal/service/access"
	"github.com/omsorg/care-api/internal/service/session"
)

// ContextPatient is the gin context key carrying the authorized patient.
const ContextPatient = "patient"

type AccessMiddleware struct {
	accessService *access.Service
}

func NewAccessMiddleware(accessService *access.Service) *AccessMiddleware {
	return &AccessMiddleware{accessService: accessService}
}

// RequirePatientAccess resolves the :patientId route param, checks the
// session user may access it and stores the patient for the handler.
func (m *AccessMiddleware) RequirePatientAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := session.UserFrom(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
			c.Abort()
			return
		}

		patientID, err := uuid.Parse(c.Param("patientId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
			c.Abort()
			return
		}

		patient, err := m.accessService.Authorize(c.Request.Context(), user, patientID)
		if err != nil {
			handler.WriteError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextPatient, patient)
		c.Next()
	}
}
