package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/application/commands/bus"
	cmdhandlers "causemap/application/commands/handlers"
	"causemap/application/queries"
	querybus "causemap/application/queries/bus"
	"causemap/pkg/auth"
	"causemap/pkg/common"
	pkgerrors "causemap/pkg/errors"
	"causemap/pkg/utils"
)

// ScenarioHandler handles scenario capture and retrieval requests.
type ScenarioHandler struct {
	capture    *cmdhandlers.CaptureScenarioHandler
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewScenarioHandler creates a new scenario handler.
func NewScenarioHandler(
	capture *cmdhandlers.CaptureScenarioHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ScenarioHandler {
	return &ScenarioHandler{
		capture:    capture,
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

type captureScenarioRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type captureScenarioResponse struct {
	ID        string `json:"id"`
	GraphID   string `json:"graph_id"`
	Name      string `json:"name"`
	Checksum  string `json:"checksum"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// CaptureScenario handles POST /graphs/{graphID}/scenarios.
func (h *ScenarioHandler) CaptureScenario(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req captureScenarioRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, err.Error())
		return
	}

	snap, err := h.capture.Handle(r.Context(), commands.CaptureScenarioCommand{
		UserID:      userCtx.UserID,
		GraphID:     chi.URLParam(r, "graphID"),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, captureScenarioResponse{
		ID:        snap.ID().String(),
		GraphID:   snap.GraphID().String(),
		Name:      snap.Name(),
		Checksum:  snap.Checksum(),
		NodeCount: len(snap.Nodes()),
		EdgeCount: len(snap.Edges()),
	})
}

// ListScenarios handles GET /graphs/{graphID}/scenarios.
func (h *ScenarioHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListScenariosQuery{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetScenario handles GET /scenarios/{scenarioID}.
func (h *ScenarioHandler) GetScenario(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetScenarioQuery{
		UserID:     userCtx.UserID,
		ScenarioID: chi.URLParam(r, "scenarioID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteScenario handles DELETE /scenarios/{scenarioID}.
func (h *ScenarioHandler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.DeleteScenarioCommand{
		UserID:     userCtx.UserID,
		ScenarioID: chi.URLParam(r, "scenarioID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
