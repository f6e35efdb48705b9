package routes

import (
	"errors"
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/refine"
	"github.com/graphweave/graphweave/pkg/types"

	"github.com/labstack/echo/v4"
)

// RefineHandler runs one generative refinement pass over a text and its
// preliminary candidates.
func RefineHandler(c echo.Context) error {
	type refineRequest struct {
		Text       string                `json:"text" validate:"required"`
		Candidates []types.SpanCandidate `json:"candidates"`
	}

	type refineResponse struct {
		Message string                  `json:"message"`
		Result  *types.RefinementResult `json:"result,omitempty"`
		Metrics *ai.ModelMetrics        `json:"metrics,omitempty"`
	}

	data := new(refineRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, refineResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, refineResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	aiClient := c.(*middleware.AppContext).App.AiClient
	refiner := refine.New(refine.Params{
		Client:           aiClient,
		Model:            util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
		StructuredOutput: util.GetEnvBool("AI_STRUCTURED_OUTPUT", false),
	})

	result, err := refiner.Refine(c.Request().Context(), data.Text, data.Candidates)
	if err != nil {
		if errors.Is(err, refine.ErrMalformedResponse) {
			return c.JSON(http.StatusBadGateway, refineResponse{
				Message: "Model returned an unparseable reply",
			})
		}
		logger.Error("[Refine] Refinement failed", "err", err)
		return c.JSON(http.StatusInternalServerError, refineResponse{
			Message: "Internal server error",
		})
	}

	metrics := aiClient.GetMetrics()
	return c.JSON(http.StatusOK, refineResponse{
		Message: "Refinement completed",
		Result:  result,
		Metrics: &metrics,
	})
}
