// Package handlers exposes the decision-map API over HTTP. Handlers
// translate requests into commands and queries, and let the shared
// error handler map domain failures to status codes.
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

const maxBodyBytes = 1 << 20

// GraphHandler handles graph CRUD requests.
type GraphHandler struct {
	createGraph *cmdhandlers.CreateGraphHandler
	commandBus  *bus.CommandBus
	queryBus    *querybus.QueryBus
	errors      *pkgerrors.ErrorHandler
	logger      *zap.Logger
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(
	createGraph *cmdhandlers.CreateGraphHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *GraphHandler {
	return &GraphHandler{
		createGraph: createGraph,
		commandBus:  commandBus,
		queryBus:    queryBus,
		errors:      errorHandler,
		logger:      logger,
	}
}

type createGraphRequest struct {
	Name string `json:"name" validate:"max=200"`
}

type createGraphResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateGraph handles POST /graphs.
func (h *GraphHandler) CreateGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req createGraphRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, err.Error())
		return
	}

	graph, err := h.createGraph.Handle(r.Context(), commands.CreateGraphCommand{
		UserID: userCtx.UserID,
		Name:   req.Name,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, createGraphResponse{
		ID:   graph.ID().String(),
		Name: graph.Name(),
	})
}

type renameGraphRequest struct {
	Name string `json:"name"`
}

// RenameGraph handles PUT /graphs/{graphID}.
func (h *GraphHandler) RenameGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req renameGraphRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.RenameGraphCommand{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
		Name:    req.Name,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// DeleteGraph handles DELETE /graphs/{graphID}.
func (h *GraphHandler) DeleteGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.DeleteGraphCommand{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graphs/{graphID}.
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetGraphQuery{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListGraphs handles GET /graphs.
func (h *GraphHandler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListGraphsQuery{
		UserID: userCtx.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
