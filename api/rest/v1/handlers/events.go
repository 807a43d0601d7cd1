package handlers

import (
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"

	v1 "github.com/nick/por-s3/api/rest/v1"
	"github.com/nick/por-s3/api/rest/v1/schemas"
	"github.com/nick/por-s3/internal/config"
	"github.com/nick/por-s3/internal/launcher"
)

type EventHandler struct {
	service *launcher.Service
}

func NewEventHandler(service *launcher.Service) *EventHandler {
	return &EventHandler{service: service}
}

// HandleEvent accepts an S3 notification payload and launches one
// instance per matching record. Non-matching records are ignored, so
// an empty launched list is a valid success.
func (h *EventHandler) HandleEvent(c *gin.Context) error {
	var event events.S3Event
	if err := c.ShouldBindJSON(&event); err != nil {
		return v1.APIError{
			Code: http.StatusBadRequest,
			Err:  "invalid S3 event payload",
		}
	}

	launched, err := h.service.HandleS3Event(c.Request.Context(), event)
	if err != nil {
		var missing *config.MissingSettingsError
		if errors.As(err, &missing) {
			return v1.APIError{
				Code: http.StatusInternalServerError,
				Err:  err.Error(),
			}
		}
		return err
	}

	c.JSON(http.StatusAccepted, schemas.EventResponse{Launched: launched})
	return nil
}
