package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/platform/auth"
	"github.com/larose23/smartmedi-ai-mvp-sub006/pkg/pagination"
)

type Handler struct {
	svc  *Service
	repo ProviderRepository
}

func NewHandler(svc *Service, repo ProviderRepository) *Handler {
	return &Handler{svc: svc, repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/providers", h.ListProviders)
	read.GET("/providers/:id", h.GetProvider)
	read.GET("/providers/:id/slots", h.ListProviderSlots)
	read.POST("/scheduling/optimize", h.Optimize)
	read.POST("/scheduling/recommendations", h.Recommend)
	read.POST("/scheduling/validate-slot", h.ValidateSlot)

	write := api.Group("", auth.RequireRole("admin", "registrar"))
	write.POST("/providers", h.CreateProvider)
	write.DELETE("/providers/:id", h.DeleteProvider)
	write.POST("/providers/:id/slots", h.CreateSlot)
	write.DELETE("/slots/:id", h.DeleteSlot)
}

// -- Optimizer endpoints --

// optimizeRequest carries preferences plus an optional inline snapshot of
// providers and slots; when absent the repository supplies them.
type optimizeRequest struct {
	Preferences SchedulingPreferences `json:"preferences"`
	Providers   []Provider            `json:"providers,omitempty"`
	Slots       []TimeSlot            `json:"slots,omitempty"`
}

// Optimize handles POST /scheduling/optimize.
func (h *Handler) Optimize(c echo.Context) error {
	var req optimizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ranked, err := h.svc.OptimizeSchedule(c.Request().Context(), req.Preferences, req.Providers, req.Slots)
	if err != nil {
		if errors.Is(err, ErrUnknownUrgency) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ranked)
}

// Recommend handles POST /scheduling/recommendations.
func (h *Handler) Recommend(c echo.Context) error {
	var req optimizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	recommended, err := h.svc.RecommendProviders(c.Request().Context(), req.Preferences, req.Providers)
	if err != nil {
		if errors.Is(err, ErrUnknownUrgency) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recommended)
}

// validateSlotRequest is the JSON body for the validate-slot endpoint.
type validateSlotRequest struct {
	Slot    TimeSlot `json:"slot"`
	Urgency string   `json:"urgency"`
	Now     string   `json:"now,omitempty"` // RFC3339; defaults to server time
}

// ValidateSlot handles POST /scheduling/validate-slot.
func (h *Handler) ValidateSlot(c echo.Context) error {
	var req validateSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var now time.Time
	if req.Now != "" {
		parsed, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid now, expected RFC3339")
		}
		now = parsed
	}
	ok, err := h.svc.IsSlotWithinUrgencyWindow(req.Slot, req.Urgency, now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"within_window": ok})
}

// -- Provider/slot administration --

func (h *Handler) CreateProvider(c echo.Context) error {
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if err := h.repo.CreateProvider(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.repo.GetProvider(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "provider not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.repo.ListProviders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.repo.DeleteProvider(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateSlot(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	var s TimeSlot
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.ProviderID = providerID
	if s.StartTime.IsZero() || s.EndTime.IsZero() || !s.EndTime.After(s.StartTime) {
		return echo.NewHTTPError(http.StatusBadRequest, "slot needs a start_time before its end_time")
	}
	if err := h.repo.CreateSlot(c.Request().Context(), &s); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListProviderSlots(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	from := time.Now().UTC()
	to := from.Add(defaultMaxWaitMinutes * time.Minute)
	if s := c.QueryParam("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from, expected RFC3339")
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to, expected RFC3339")
		}
	}
	slots, err := h.repo.ListSlotsByProvider(c.Request().Context(), providerID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.repo.DeleteSlot(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
