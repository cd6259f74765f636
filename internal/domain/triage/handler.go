package triage

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/domain/rules"
	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	g.POST("/triage/evaluate", h.Evaluate)
}

// evaluateRequest is the JSON body for the evaluate endpoint.
type evaluateRequest struct {
	Encounter Encounter `json:"encounter"`
	AsOf      string    `json:"as_of,omitempty"` // RFC3339; defaults to now
}

// Evaluate handles POST /triage/evaluate.
func (h *Handler) Evaluate(c echo.Context) error {
	var req evaluateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid as_of, expected RFC3339")
		}
		asOf = parsed
	}

	outcome, err := h.svc.EvaluateTriage(c.Request().Context(), &req.Encounter, asOf)
	if err != nil {
		if rules.IsValidationError(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}
