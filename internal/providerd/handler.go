package providerd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"keybridge/internal/domain"
	"keybridge/internal/provider"
)

// Handler defines the provider API endpoints.
type Handler interface {
	Bind(ctx *gin.Context)
	Release(ctx *gin.Context)
	Operate(ctx *gin.Context)
	Interact(ctx *gin.Context)
}

type handler struct {
	server *Server
}

// NewHandler returns the gin handlers for s.
func NewHandler(s *Server) Handler {
	return &handler{server: s}
}

// Bind handles POST /v1/bind.
func (h *handler) Bind(ctx *gin.Context) {
	var req provider.BindRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, fmt.Sprintf("invalid bind request: %v", err))
		return
	}
	if req.APIVersion != provider.APIVersion {
		badRequest(ctx, fmt.Sprintf("unsupported api version %d", req.APIVersion))
		return
	}
	token := h.server.bind(req.Identity)
	ctx.JSON(http.StatusOK, provider.BindResponse{
		Session:    token,
		ProviderID: h.server.id,
		APIVersion: provider.APIVersion,
	})
}

// Release handles DELETE /v1/bind/:session. Unknown sessions are ignored.
func (h *handler) Release(ctx *gin.Context) {
	h.server.release(ctx.Param("session"))
	ctx.Status(http.StatusNoContent)
}

// Operate handles POST /v1/ops.
func (h *handler) Operate(ctx *gin.Context) {
	var req provider.OpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, fmt.Sprintf("invalid operation: %v", err))
		return
	}
	if !h.server.hasSession(req.Session) {
		ctx.JSON(http.StatusUnauthorized, provider.ErrorResponse{Message: "unknown session"})
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}
	comp := h.server.run(req.Session, operation{
		correlationID: req.CorrelationID,
		kind:          kind,
		identity:      req.Identity,
		input:         req.Input,
	})
	ctx.JSON(http.StatusOK, provider.FromCompletion(comp))
}

// Interact handles POST /v1/interactions/:id.
func (h *handler) Interact(ctx *gin.Context) {
	var req provider.InteractionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, fmt.Sprintf("invalid interaction answer: %v", err))
		return
	}
	comp, err := h.server.interact(req.Session, ctx.Param("id"), []byte(req.Passphrase), req.Cancel)
	switch {
	case errors.Is(err, errUnknownInteraction):
		ctx.JSON(http.StatusNotFound, provider.ErrorResponse{Message: err.Error()})
		return
	case errors.Is(err, errForeignInteraction):
		ctx.JSON(http.StatusUnauthorized, provider.ErrorResponse{Message: err.Error()})
		return
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, provider.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, provider.FromCompletion(comp))
}

func badRequest(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusBadRequest, provider.ErrorResponse{Message: msg})
}
