package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/omsorg/care-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewWarningResponse carries an advisory message alongside a refused write,
// for conflicts the client may retry with force.
func NewWarningResponse(message string, data interface{}) *Response {
	return &Response{
		Status:  "warning",
		Message: message,
		Data:    data,
	}
}

// WriteError maps a service error to an HTTP status and writes the error
// response.
func WriteError(c *gin.Context, err error) {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case apperrors.ErrBadRequest:
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
	case apperrors.ErrUnauthenticated:
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
	case apperrors.ErrUnauthorized:
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
	case apperrors.ErrConflict:
		c.JSON(http.StatusConflict, NewWarningResponse(err.Error(), nil))
	case apperrors.ErrUpstream:
		c.JSON(http.StatusBadGateway, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
	}
}
