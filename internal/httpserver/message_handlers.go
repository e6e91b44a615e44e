package httpserver

import (
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/presence"
	"github.com/n3m01726/chattyChat/internal/service"
	"github.com/n3m01726/chattyChat/internal/upload"
	"github.com/n3m01726/chattyChat/internal/ws"
)

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := msgSvc.ListRecent(r.Context(), limitParam(r, 50))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleSearchMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		msgs, err := msgSvc.Search(r.Context(), query, limitParam(r, 50))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleMessagesByUser(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		msgs, err := msgSvc.ListByUsername(r.Context(), username, limitParam(r, 50))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// handleDeleteMessage deletes one of the requester's own messages. A removed
// message is also broadcast to connected clients so REST and WebSocket
// consumers converge on the same timeline.
func handleDeleteMessage(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}

		res, err := msgSvc.DeleteOwned(r.Context(), messageID, user.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete message"})
			return
		}
		if !res.Removed {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found or not yours"})
			return
		}

		hub.Broadcast(map[string]any{
			"type":      "message-deleted",
			"messageId": messageID,
		})
		writeJSON(w, http.StatusOK, res)
	}
}

// attachmentKindFor classifies an upload as image or video, first by the
// declared content type, then by extension. Returns "" when neither matches.
func attachmentKindFor(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return domain.AttachmentImage
	case strings.HasPrefix(ct, "video/"):
		return domain.AttachmentVideo
	}
	return ""
}

// handleUploadAttachment stores a message attachment and returns its
// reference and kind; the client includes both in a later send event.
func handleUploadAttachment(files *upload.LocalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(50 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
			return
		}
		defer file.Close()

		kind := attachmentKindFor(header)
		if kind == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only image and video attachments are allowed"})
			return
		}

		ref, err := files.Save(header.Filename, file)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not save file"})
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"attachmentRef":  ref,
			"attachmentKind": kind,
		})
	}
}

func handleStats(msgSvc *service.MessageService, registry *presence.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := msgSvc.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"totalMessages": stats.TotalMessages,
			"topAuthors":    stats.TopAuthors,
			"onlineCount":   registry.Count(),
			"onlineUsers":   registry.Usernames(),
		})
	}
}
