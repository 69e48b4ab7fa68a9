package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// RequestValidation assigns every request an ID and rejects anything but
// reads. The status server observes a running campaign, it never drives it.
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := utils.GenerateRequestID()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				return c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{
					Error:     "method_not_allowed",
					Message:   "The status server is read-only",
					RequestID: requestID,
					Timestamp: time.Now(),
				})
			}

			return next(c)
		}
	}
}
