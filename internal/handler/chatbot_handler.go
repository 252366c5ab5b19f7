package handler

import "net/http"

type chatbotRequest struct {
	Message string  `json:"message"`
	Context *string `json:"context"`
}

func (h *Handler) chatbotMessage(w http.ResponseWriter, r *http.Request) {
	log := h.opLog(r, "handler.chatbotMessage")

	var req chatbotRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	reply := h.Chatbot.Reply(req.Message, req.Context)
	log.Debug("chatbot reply", "tag", reply.Tag)
	respond(w, r, http.StatusOK, reply)
}
