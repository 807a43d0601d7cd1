package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError represents an error response from the API
type APIError struct {
	Code int    `json:"code"`
	Err  string `json:"err"`
}

func (e APIError) Error() string {
	return e.Err
}

// ErrorHandler adapts handlers returning errors into gin handlers.
func ErrorHandler(fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := fn(c)
		if err == nil {
			return
		}
		var apiErr APIError
		if errors.As(err, &apiErr) {
			c.AbortWithStatusJSON(apiErr.Code, apiErr)
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
			Code: http.StatusInternalServerError,
			Err:  err.Error(),
		})
	}
}
