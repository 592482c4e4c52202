package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// Handler exposes the turn runner over HTTP for dashboards and manual
// testing. Production traffic arrives through the WhatsApp webhook instead.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

type processRequest struct {
	UserID        string `json:"user_id"`
	ProspectPhone string `json:"prospect_phone"`
	Message       string `json:"message"`
}

type processResponse struct {
	Reply string             `json:"reply"`
	Phase string             `json:"phase"`
	State *ConversationState `json:"state"`
}

// ProcessMessage handles POST /api/lead-agent.
func (h *Handler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ProspectPhone) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "user_id, prospect_phone, and message are required", http.StatusBadRequest)
		return
	}

	res, err := h.engine.ProcessMessage(r.Context(), req.UserID, req.ProspectPhone, req.Message)
	if err != nil {
		h.logger.Error("turn processing failed", "user_id", req.UserID, "error", err)
		http.Error(w, "could not process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(processResponse{
		Reply: res.Reply,
		Phase: string(res.Phase),
		State: res.State,
	})
}
