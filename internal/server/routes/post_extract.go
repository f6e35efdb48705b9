package routes

import (
	"net/http"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/nlp"
	"github.com/graphweave/graphweave/pkg/pipeline"
	"github.com/graphweave/graphweave/pkg/types"

	"github.com/labstack/echo/v4"
)

// ExtractHandler runs the non-generative extraction stages over a text and
// returns the resolved candidates per source. Nothing is persisted; this is
// the dry-run endpoint for inspecting extractor output.
func ExtractHandler(c echo.Context) error {
	type extractRequest struct {
		Text         string   `json:"text" validate:"required"`
		EnabledTypes []string `json:"enabled_types"`
		EnabledPacks []string `json:"enabled_packs"`
	}

	type extractResponse struct {
		Message     string                `json:"message"`
		Pattern     []types.SpanCandidate `json:"pattern,omitempty"`
		Statistical []types.SpanCandidate `json:"statistical,omitempty"`
	}

	data := new(extractRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var statistical *extract.StatisticalAdapter
	if nlpURL := util.GetEnv("NLP_URL"); nlpURL != "" {
		client := nlp.NewClient(nlp.ClientParams{
			BaseURL: nlpURL,
			Model:   util.GetEnv("NLP_MODEL"),
		})
		statistical = extract.NewStatisticalAdapter(client, extract.NewPatternExtractor())
	}

	p := pipeline.New(pipeline.Params{
		Statistical:  statistical,
		EnabledTypes: data.EnabledTypes,
		EnabledPacks: data.EnabledPacks,
	})

	pattern, stat := p.Extract(c.Request().Context(), data.Text)

	return c.JSON(http.StatusOK, extractResponse{
		Message:     "Extraction completed",
		Pattern:     pattern,
		Statistical: stat,
	})
}
