package api

import (
	"net/http"

	"github.com/krishimitra/advisor/internal/chatlog"
	"github.com/krishimitra/advisor/internal/identity"
	"github.com/krishimitra/advisor/internal/voice"
)

type voiceRequest struct {
	Text string `json:"text"`
}

// PostVoiceCommand classifies a browser speech transcript.
func (h *Handler) PostVoiceCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req voiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := voice.Process(req.Text)
	h.convLog.Log(chatlog.ConversationLogEvent{
		UserID:     identity.UserIDFromContext(ctx),
		SessionID:  identity.SessionIDFromContext(ctx),
		Channel:    "voice_http",
		Direction:  "inbound",
		EventType:  chatlog.EventVoiceCommand,
		Category:   cmd.Intent,
		ContentRaw: cmd.Text,
	})

	JSON(w, http.StatusOK, cmd)
}
