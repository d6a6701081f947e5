// Package api exposes the webhook HTTP surface: the Telegram update
// endpoint and a health probe.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/remembot/remembot/internal/api/respond"
	"github.com/remembot/remembot/internal/assistant"
	"github.com/remembot/remembot/internal/telegram"
)

// Handler serves webhook deliveries, handing each message to the
// assistant and sending the reply back through the Telegram client.
type Handler struct {
	assistant *assistant.Assistant
	sender    telegram.Sender
	log       zerolog.Logger
}

// NewHandler builds the webhook handler.
func NewHandler(a *assistant.Assistant, sender telegram.Sender, log zerolog.Logger) *Handler {
	return &Handler{assistant: a, sender: sender, log: log}
}

// Webhook handles POST /webhook. Malformed deliveries (undecodable body,
// missing chat id or text) are acknowledged silently so Telegram stops
// redelivering them; nothing is stored and no reply is sent.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.log.Debug().Err(err).Msg("undecodable webhook payload")
		respond.WriteAck(w)
		return
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID == 0 || strings.TrimSpace(msg.Text) == "" {
		h.log.Debug().Msg("malformed inbound message, acknowledged without action")
		respond.WriteAck(w)
		return
	}

	reply := h.assistant.HandleMessage(r.Context(), msg.Chat.ID, msg.Text)
	if reply != "" {
		if err := h.sender.Send(r.Context(), msg.Chat.ID, reply); err != nil {
			h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("reply delivery failed")
		}
	}
	respond.WriteAck(w)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
