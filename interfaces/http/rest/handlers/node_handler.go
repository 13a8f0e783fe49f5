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
	"causemap/pkg/utils"
)

// NodeHandler handles node mutation requests within a graph.
type NodeHandler struct {
	addNode    *cmdhandlers.AddNodeHandler
	commandBus *bus.CommandBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler.
func NewNodeHandler(
	addNode *cmdhandlers.AddNodeHandler,
	commandBus *bus.CommandBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		addNode:    addNode,
		commandBus: commandBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

type addNodeRequest struct {
	Type      string                   `json:"type" validate:"required"`
	Title     string                   `json:"title" validate:"required,max=500"`
	KRImpacts []commands.KRImpactInput `json:"krImpacts"`
	View      *commands.ViewRectInput  `json:"view"`
}

type nodeResponse struct {
	ID        string                   `json:"id"`
	Type      string                   `json:"type"`
	Title     string                   `json:"title"`
	KRImpacts []commands.KRImpactInput `json:"krImpacts"`
	View      *commands.ViewRectInput  `json:"view,omitempty"`
}

// AddNode handles POST /graphs/{graphID}/nodes.
func (h *NodeHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req addNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, err.Error())
		return
	}

	node, err := h.addNode.Handle(r.Context(), commands.AddNodeCommand{
		UserID:    userCtx.UserID,
		GraphID:   chi.URLParam(r, "graphID"),
		Type:      req.Type,
		Title:     req.Title,
		KRImpacts: req.KRImpacts,
		View:      req.View,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	resp := nodeResponse{
		ID:    node.ID().String(),
		Type:  node.Type().String(),
		Title: node.Title().String(),
	}
	for _, imp := range node.KRImpacts() {
		resp.KRImpacts = append(resp.KRImpacts, commands.KRImpactInput{
			KRID:       imp.KRID,
			DeltaP50:   imp.DeltaP50,
			Confidence: imp.Confidence,
		})
	}
	if rect := node.ViewRect(); rect != nil {
		resp.View = &commands.ViewRectInput{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H}
	}
	common.RespondJSON(w, http.StatusCreated, resp)
}

type updateNodeRequest struct {
	Type      *string                   `json:"type"`
	Title     *string                   `json:"title"`
	KRImpacts *[]commands.KRImpactInput `json:"krImpacts"`
}

// UpdateNode handles PUT /graphs/{graphID}/nodes/{nodeID}.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req updateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.UpdateNodeCommand{
		UserID:    userCtx.UserID,
		GraphID:   chi.URLParam(r, "graphID"),
		NodeID:    chi.URLParam(r, "nodeID"),
		Type:      req.Type,
		Title:     req.Title,
		KRImpacts: req.KRImpacts,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type moveNodeRequest struct {
	View commands.ViewRectInput `json:"view"`
}

// MoveNode handles PUT /graphs/{graphID}/nodes/{nodeID}/position.
// Placement changes are presentation-only and never produce events or
// structural deltas.
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	var req moveNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.MoveNodeCommand{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
		NodeID:  chi.URLParam(r, "nodeID"),
		View:    req.View,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// DeleteNode handles DELETE /graphs/{graphID}/nodes/{nodeID}.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
		return
	}

	err = h.commandBus.Send(r.Context(), commands.DeleteNodeCommand{
		UserID:  userCtx.UserID,
		GraphID: chi.URLParam(r, "graphID"),
		NodeID:  chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
