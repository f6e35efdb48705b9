package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graphweave/graphweave/internal/queue"
	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/store"
	pgxstore "github.com/graphweave/graphweave/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// DeleteEntityHandler enqueues the removal of one entity and its edges. The
// actual deletion runs on the worker so it serializes with in-flight
// ingestion batches.
func DeleteEntityHandler(c echo.Context) error {
	type deleteEntityResponse struct {
		Message string `json:"message"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if !middleware.IsAdmin(user) {
		return c.JSON(http.StatusForbidden, deleteEntityResponse{
			Message: "Admin role required",
		})
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, deleteEntityResponse{
			Message: "Missing entity ID",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewStorageWithConnection(app.DBConn, app.AiClient)

	if _, err := storage.GetEntity(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, deleteEntityResponse{
				Message: "Entity not found",
			})
		}
		logger.Error("Failed to get entity", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteEntityResponse{
			Message: "Internal server error",
		})
	}

	msgBytes, err := json.Marshal(queue.QueueDeleteMsg{EntityID: id})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, deleteEntityResponse{
			Message: "Internal server error",
		})
	}
	if err := util.RetryErr(publishRetries, func() error {
		return queue.PublishFIFO(app.Queue, queue.DeleteQueue, msgBytes)
	}); err != nil {
		logger.Error("Failed to publish to delete_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, deleteEntityResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, deleteEntityResponse{
		Message: "Entity queued for deletion",
	})
}
