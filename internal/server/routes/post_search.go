package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/store"
	pgxstore "github.com/graphweave/graphweave/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

const maxSearchLimit = 100

// SearchHandler runs an embedding similarity search over stored entities.
func SearchHandler(c echo.Context) error {
	type searchRequest struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit"`
	}

	type searchResponse struct {
		Message  string               `json:"message"`
		Entities []store.StoredEntity `json:"entities"`
	}

	data := new(searchRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Message: "Invalid request body",
		})
	}
	if data.Limit <= 0 {
		data.Limit = 10
	}
	data.Limit = util.Min(data.Limit, maxSearchLimit)

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewStorageWithConnection(app.DBConn, app.AiClient)

	entities, err := storage.SearchSimilar(c.Request().Context(), data.Query, data.Limit)
	if err != nil {
		logger.Error("Failed to search entities", "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{
			Message: "Internal server error",
		})
	}
	if entities == nil {
		entities = []store.StoredEntity{}
	}

	return c.JSON(http.StatusOK, searchResponse{
		Message:  "OK",
		Entities: entities,
	})
}
