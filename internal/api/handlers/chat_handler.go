package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	middleware "github.com/markdave123-py/docchat/internal/api/middlewares"
	"github.com/markdave123-py/docchat/internal/core"
	"github.com/markdave123-py/docchat/internal/services"
)

type ChatHandler struct {
	sessions      *services.SessionService
	assembler     *services.ContextService
	llm           core.LLMProvider
	fileContextOn bool
}

func NewChatHandler(sessions *services.SessionService, assembler *services.ContextService, llm core.LLMProvider, fileContextOn bool) *ChatHandler {
	return &ChatHandler{sessions: sessions, assembler: assembler, llm: llm, fileContextOn: fileContextOn}
}

type chatRequest struct {
	SessionID   string   `json:"session_id"`
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
}

type chatResponse struct {
	SessionID   string                `json:"session_id"`
	Answer      string                `json:"answer"`
	Strategy    string                `json:"strategy"`
	Diagnostics []services.Diagnostic `json:"context_diagnostics,omitempty"`
}

// Query runs one chat turn: merge the turn's file references into the
// session set, assemble context for them, pick a strategy, and ask the
// model.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	merged, err := h.sessions.MergeTurnReferences(ctx, req.SessionID, userID, req.DocumentIDs)
	if err != nil {
		if eris.Is(err, services.ErrAccessDenied) {
			http.Error(w, "access denied", http.StatusForbidden)
			return
		}
		zap.L().Error("merge turn references failed", zap.String("session_id", req.SessionID), zap.Error(err))
		http.Error(w, "session update failed", http.StatusInternalServerError)
		return
	}

	strategy := services.SelectStrategy(len(merged) > 0, h.fileContextOn)

	var assembled *services.AssembledContext
	if strategy.Name() == "document_context" {
		assembled, err = h.assembler.Assemble(ctx, userID, merged)
		if err != nil {
			zap.L().Error("context assembly failed", zap.String("session_id", req.SessionID), zap.Error(err))
			http.Error(w, "context assembly failed", http.StatusInternalServerError)
			return
		}
	}

	systemPrompt, userPrompt := strategy.BuildPrompt(req.Query, assembled)

	answer, err := h.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		zap.L().Error("llm generate failed", zap.String("session_id", req.SessionID), zap.Error(err))
		http.Error(w, "completion failed", http.StatusBadGateway)
		return
	}

	resp := chatResponse{
		SessionID: req.SessionID,
		Answer:    answer,
		Strategy:  strategy.Name(),
	}
	if assembled != nil {
		resp.Diagnostics = assembled.Diagnostics
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
