package middleware

import (
	"errors"
	"net/http"

	"salespipe/internal/transport/httpdto"
	salespipe_errors "salespipe/pkg/errors"
	"salespipe/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}

		status := http.StatusInternalServerError
		code := "INTERNAL_ERROR"
		switch {
		case errors.Is(err, salespipe_errors.ErrNotFound):
			status, code = http.StatusNotFound, "NOT_FOUND"
		case errors.Is(err, salespipe_errors.ErrAlreadyExists):
			status, code = http.StatusConflict, "ALREADY_EXISTS"
		case errors.Is(err, salespipe_errors.ErrInvalidInput):
			status, code = http.StatusBadRequest, "INVALID_INPUT"
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
