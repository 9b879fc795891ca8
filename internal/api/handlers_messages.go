package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hackgods/clinic-management/internal/message"
)

// streamHeartbeat keeps idle SSE connections open through proxies.
var streamHeartbeat = 25 * time.Second

func inboxHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Inbox(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []message.Message{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func conversationHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		other, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		list, err := svc.Conversation(r.Context(), CurrentUser(r.Context()).ID, other, queryInt(r, "limit", 0))
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []message.Message{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func sendMessageHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := svc.Send(r.Context(), CurrentUser(r.Context()).ID, req.ReceiverID, req.Contenu)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func deleteMessageHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), CurrentUser(r.Context()).ID, id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// messageStreamHandler relays the caller's message events as server-sent
// events until the client disconnects.
func messageStreamHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
			return
		}

		events, err := svc.Subscribe(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: ready\ndata: {}\n\n")
		flusher.Flush()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case payload, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
