package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"causemap/application/queries"
	querybus "causemap/application/queries/bus"
	"causemap/pkg/auth"
	"causemap/pkg/common"
	pkgerrors "causemap/pkg/errors"
)

// CompareHandler handles scenario comparison requests.
type CompareHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewCompareHandler creates a new comparison handler.
func NewCompareHandler(queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *CompareHandler {
	return &CompareHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		logger:   logger,
	}
}

// CompareScenarios handles GET /compare?base={id}&target={id}.
// Optional parameters: tolerance (float), ids_only (bool).
func (h *CompareHandler) CompareScenarios(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	query := queries.CompareScenariosQuery{
		UserID:   userCtx.UserID,
		BaseID:   r.URL.Query().Get("base"),
		TargetID: r.URL.Query().Get("target"),
		IDsOnly:  parseBool(r.URL.Query().Get("ids_only")),
	}
	tolerance, ok, err := parseTolerance(r.URL.Query().Get("tolerance"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid tolerance value")
		return
	}
	if ok {
		query.Tolerance = &tolerance
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// CompareGraphLive handles GET /graphs/{graphID}/compare/{scenarioID}.
// The scenario is the baseline and the live graph is the target, so
// added means added since capture.
func (h *CompareHandler) CompareGraphLive(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	query := queries.CompareGraphLiveQuery{
		UserID:     userCtx.UserID,
		GraphID:    chi.URLParam(r, "graphID"),
		ScenarioID: chi.URLParam(r, "scenarioID"),
		IDsOnly:    parseBool(r.URL.Query().Get("ids_only")),
	}
	tolerance, ok, err := parseTolerance(r.URL.Query().Get("tolerance"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid tolerance value")
		return
	}
	if ok {
		query.Tolerance = &tolerance
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ComparisonSummary handles GET /compare/summary?base={id}&target={id}.
func (h *CompareHandler) ComparisonSummary(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ComparisonSummaryQuery{
		UserID:   userCtx.UserID,
		BaseID:   r.URL.Query().Get("base"),
		TargetID: r.URL.Query().Get("target"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func parseTolerance(raw string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false, strconv.ErrSyntax
	}
	return v, true, nil
}
