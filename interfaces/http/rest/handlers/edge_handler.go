package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"causemap/application/commands"
	"causemap/application/commands/bus"
	cmdhandlers "causemap/application/commands/handlers"
	"causemap/pkg/auth"
	"causemap/pkg/common"
	pkgerrors "causemap/pkg/errors"
)

// EdgeHandler handles edge mutation requests within a graph.
type EdgeHandler struct {
	connectNodes *cmdhandlers.ConnectNodesHandler
	commandBus   *bus.CommandBus
	errors       *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewEdgeHandler creates a new edge handler.
func NewEdgeHandler(
	connectNodes *cmdhandlers.ConnectNodesHandler,
	commandBus *bus.CommandBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *EdgeHandler {
	return &EdgeHandler{
		connectNodes: connectNodes,
		commandBus:   commandBus,
		errors:       errorHandler,
		logger:       logger,
	}
}

type connectNodesRequest struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   string   `json:"kind"`
	Weight *float64 `json:"weight"`
}

type edgeResponse struct {
	ID     string   `json:"id"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   string   `json:"kind"`
	Weight *float64 `json:"weight,omitempty"`
}

// ConnectNodes handles POST /graphs/{graphID}/edges.
func (h *EdgeHandler) ConnectNodes(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req connectNodesRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}

	edge, err := h.connectNodes.Handle(r.Context(), commands.ConnectNodesCommand{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
		FromID:  req.From,
		ToID:    req.To,
		Kind:    req.Kind,
		Weight:  req.Weight,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, edgeResponse{
		ID:     edge.ID().String(),
		From:   edge.From().String(),
		To:     edge.To().String(),
		Kind:   edge.Kind().String(),
		Weight: edge.Weight(),
	})
}

type updateEdgeRequest struct {
	From        *string  `json:"from"`
	To          *string  `json:"to"`
	Kind        *string  `json:"kind"`
	Weight      *float64 `json:"weight"`
	ClearWeight bool     `json:"clearWeight"`
}

// UpdateEdge handles PUT /graphs/{graphID}/edges/{edgeID}. Retargeting
// both endpoints keeps the edge id, so downstream diffs report it as
// modified rather than removed and re-added.
func (h *EdgeHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req updateEdgeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.UpdateEdgeCommand{
		UserID:      userCtx.UserID,
		GraphID:     chi.URLParam(r, "graphID"),
		EdgeID:      chi.URLParam(r, "edgeID"),
		FromID:      req.From,
		ToID:        req.To,
		Kind:        req.Kind,
		Weight:      req.Weight,
		ClearWeight: req.ClearWeight,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteEdge handles DELETE /graphs/{graphID}/edges/{edgeID}.
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.DeleteEdgeCommand{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
		EdgeID:  chi.URLParam(r, "edgeID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
