package routes

import (
	"encoding/json"
	"net/http"

	"github.com/graphweave/graphweave/internal/queue"
	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// publishRetries bounds the publish attempts per request before the client
// gets a 500 and has to resubmit.
const publishRetries = 3

// IngestDocumentsHandler accepts a document batch and enqueues it for the
// worker. Processing is asynchronous; the correlation ID ties worker logs
// back to this request.
func IngestDocumentsHandler(c echo.Context) error {
	type ingestDocument struct {
		Name string `json:"name" validate:"required"`
		Text string `json:"text" validate:"required"`
	}

	type ingestRequest struct {
		Documents    []ingestDocument `json:"documents" validate:"required,min=1,dive"`
		EnabledTypes []string         `json:"enabled_types"`
		EnabledPacks []string         `json:"enabled_packs"`
	}

	type ingestResponse struct {
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id,omitempty"`
		Documents     int    `json:"documents,omitempty"`
	}

	data := new(ingestRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ingestResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.QueueIngestMsg{
		CorrelationID: correlationID,
		EnabledTypes:  data.EnabledTypes,
		EnabledPacks:  data.EnabledPacks,
	}
	for _, doc := range data.Documents {
		msg.Documents = append(msg.Documents, queue.IngestDocument{
			Name: doc.Name,
			Text: doc.Text,
		})
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ingestResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := util.RetryErr(publishRetries, func() error {
		return queue.PublishFIFO(ch, queue.IngestQueue, msgBytes)
	}); err != nil {
		logger.Error("Failed to publish to ingest_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, ingestResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, ingestResponse{
		Message:       "Documents queued for ingestion",
		CorrelationID: correlationID,
		Documents:     len(data.Documents),
	})
}
