package routes

import (
	"errors"
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/store"
	pgxstore "github.com/graphweave/graphweave/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// ListEntitiesHandler lists stored entities, filtered by ?type= and, when
// ?value= is also given, narrowed to the single entity under that
// (value, type) business key.
func ListEntitiesHandler(c echo.Context) error {
	type listEntitiesResponse struct {
		Message  string               `json:"message"`
		Entities []store.StoredEntity `json:"entities"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewStorageWithConnection(app.DBConn, app.AiClient)

	typeID := c.QueryParam("type")
	value := c.QueryParam("value")

	if value != "" && typeID != "" {
		entity, err := storage.FindEntity(ctx, value, typeID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusOK, listEntitiesResponse{
				Message:  "OK",
				Entities: []store.StoredEntity{},
			})
		}
		if err != nil {
			logger.Error("Failed to find entity", "err", err)
			return c.JSON(http.StatusInternalServerError, listEntitiesResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusOK, listEntitiesResponse{
			Message:  "OK",
			Entities: []store.StoredEntity{*entity},
		})
	}
	if value != "" {
		return c.JSON(http.StatusBadRequest, listEntitiesResponse{
			Message: "Lookup by value requires type",
		})
	}

	entities, err := storage.ListEntities(ctx, typeID)
	if err != nil {
		logger.Error("Failed to list entities", "err", err)
		return c.JSON(http.StatusInternalServerError, listEntitiesResponse{
			Message: "Internal server error",
		})
	}
	if entities == nil {
		entities = []store.StoredEntity{}
	}

	return c.JSON(http.StatusOK, listEntitiesResponse{
		Message:  "OK",
		Entities: entities,
	})
}

// GetEntityHandler returns one entity with every edge touching it.
func GetEntityHandler(c echo.Context) error {
	type getEntityResponse struct {
		Message       string                     `json:"message"`
		Entity        *store.StoredEntity        `json:"entity,omitempty"`
		Relationships []store.StoredRelationship `json:"relationships,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, getEntityResponse{
			Message: "Missing entity ID",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewStorageWithConnection(app.DBConn, app.AiClient)

	entity, err := storage.GetEntity(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getEntityResponse{
			Message: "Entity not found",
		})
	}
	if err != nil {
		logger.Error("Failed to get entity", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, getEntityResponse{
			Message: "Internal server error",
		})
	}

	relationships, err := storage.ListRelationships(ctx, id)
	if err != nil {
		logger.Error("Failed to list relationships", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, getEntityResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getEntityResponse{
		Message:       "OK",
		Entity:        entity,
		Relationships: relationships,
	})
}
