package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/presence"
	"github.com/n3m01726/chattyChat/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if _, any := allowed["*"]; any {
		return func(r *http.Request) bool {
			return true
		}
	}
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// clientEvent is the union of every client-to-server frame. Fields outside
// the frame's type are simply left at their zero values.
type clientEvent struct {
	Type           string  `json:"type"`
	Username       string  `json:"username,omitempty"`
	Text           string  `json:"text,omitempty"`
	HasMarkdown    bool    `json:"hasMarkdown,omitempty"`
	AttachmentKind *string `json:"attachmentKind,omitempty"`
	AttachmentRef  *string `json:"attachmentRef,omitempty"`
	ExpiresInHours *int    `json:"expiresInHours,omitempty"`
	GifURL         *string `json:"gifUrl,omitempty"`
	MessageID      int64   `json:"messageId,omitempty"`
}

// Gateway dispatches WebSocket events for the shared room. The sendMu lock
// serializes persist-then-broadcast for incoming messages so the broadcast
// order always matches the storage-assigned id order.
type Gateway struct {
	hub          *Hub
	registry     *presence.Registry
	messages     *service.MessageService
	historyLimit int

	sendMu sync.Mutex
}

func NewGateway(hub *Hub, registry *presence.Registry, messages *service.MessageService, historyLimit int) *Gateway {
	return &Gateway{
		hub:          hub,
		registry:     registry,
		messages:     messages,
		historyLimit: historyLimit,
	}
}

// MakeHandler returns the HTTP handler for the /ws endpoint. Connections
// start anonymous; the first frame must be a join carrying the username.
// After joining, the connection can send, delete, and signal typing:
//   - join        -> register presence, reply with history, broadcast user-joined
//   - send        -> persist + broadcast message-created, unicast mention-notice
//   - delete      -> delete own message; broadcast message-deleted or unicast delete-error
//   - typing      -> broadcast typing-state {typing:true} to everyone else
//   - stop-typing -> broadcast typing-state {typing:false} to everyone else
func (g *Gateway) MakeHandler(allowedOrigins []string) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connID := uuid.NewString()
		g.hub.Register(connID, conn)
		identified := false

		defer func() {
			g.hub.Unregister(connID)
			if !identified {
				return
			}
			// After the handler returns the request context is gone; presence
			// cleanup still has to run.
			id, left := g.registry.Leave(context.Background(), connID)
			if left {
				g.hub.Broadcast(map[string]any{
					"type":     "user-left",
					"username": id.Name(),
					"online":   g.registry.Count(),
				})
			}
		}()

		ctx := r.Context()
		for {
			var ev clientEvent
			if err := conn.ReadJSON(&ev); err != nil {
				break
			}

			if !identified {
				if ev.Type != "join" {
					g.hub.SendTo(connID, errorPayload("join first"))
					continue
				}
				if strings.TrimSpace(ev.Username) == "" {
					g.hub.SendTo(connID, errorPayload("join requires a username"))
					continue
				}
				if err := g.handleJoin(ctx, connID, strings.TrimSpace(ev.Username)); err != nil {
					log.Printf("ws: join %q: %v", ev.Username, err)
					g.hub.SendTo(connID, errorPayload("failed to join"))
					break
				}
				identified = true
				continue
			}

			switch ev.Type {
			case "join":
				// already joined; ignore

			case "send":
				g.handleSend(ctx, connID, ev)

			case "delete":
				g.handleDelete(ctx, connID, ev.MessageID)

			case "typing":
				g.broadcastTyping(connID, true)

			case "stop-typing":
				g.broadcastTyping(connID, false)

			default:
				g.hub.SendTo(connID, errorPayload("unknown event type"))
			}
		}
	}
}

func (g *Gateway) handleJoin(ctx context.Context, connID, username string) error {
	id, err := g.registry.Join(ctx, connID, username)
	if err != nil {
		return err
	}

	history, err := g.messages.ListRecent(ctx, g.historyLimit)
	if err != nil {
		// undo the registration or the connection leaks presence state
		g.registry.Leave(ctx, connID)
		return fmt.Errorf("load history: %w", err)
	}
	g.hub.SendTo(connID, map[string]any{
		"type":     "history",
		"messages": history,
		"online":   g.registry.Count(),
	})

	g.hub.Broadcast(map[string]any{
		"type":     "user-joined",
		"username": id.Name(),
		"online":   g.registry.Count(),
	})
	return nil
}

func (g *Gateway) handleSend(ctx context.Context, connID string, ev clientEvent) {
	id, ok := g.registry.Lookup(connID)
	if !ok {
		g.hub.SendTo(connID, errorPayload("not joined"))
		return
	}

	// Holding sendMu across persist and broadcast keeps delivery order
	// identical to the storage-assigned id order across connections.
	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	msg, err := g.messages.Create(ctx, id.UserID, ev.Text, service.CreateOptions{
		HasMarkdown:    ev.HasMarkdown,
		AttachmentKind: ev.AttachmentKind,
		AttachmentRef:  ev.AttachmentRef,
		ExpiresInHours: ev.ExpiresInHours,
		GifURL:         ev.GifURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			g.hub.SendTo(connID, errorPayload("message is empty"))
		case errors.Is(err, service.ErrTextTooLong):
			g.hub.SendTo(connID, errorPayload("message is too long"))
		default:
			log.Printf("ws: create message from %q: %v", id.Username, err)
			g.hub.SendTo(connID, errorPayload("failed to send message"))
		}
		return
	}

	g.hub.Broadcast(map[string]any{
		"type":    "message-created",
		"message": msg,
	})
	g.notifyMentions(msg)
}

// notifyMentions unicasts a mention-notice to every connection of each
// mentioned user. Self-mentions are skipped.
func (g *Gateway) notifyMentions(msg *domain.EnrichedMessage) {
	for _, mentioned := range msg.Mentions {
		if mentioned == msg.Username {
			continue
		}
		payload := map[string]any{
			"type":          "mention-notice",
			"messageId":     msg.ID,
			"mentionedUser": mentioned,
			"author":        msg.AuthorName(),
			"text":          msg.Text,
			"timestamp":     msg.CreatedAt,
		}
		for _, target := range g.registry.ConnectionsFor(mentioned) {
			g.hub.SendTo(target, payload)
		}
	}
}

func (g *Gateway) handleDelete(ctx context.Context, connID string, messageID int64) {
	id, ok := g.registry.Lookup(connID)
	if !ok {
		g.hub.SendTo(connID, errorPayload("not joined"))
		return
	}

	res, err := g.messages.DeleteOwned(ctx, messageID, id.UserID)
	if err != nil {
		log.Printf("ws: delete message %d for %q: %v", messageID, id.Username, err)
		g.hub.SendTo(connID, errorPayload("failed to delete message"))
		return
	}
	if !res.Removed {
		// Missing and foreign messages get the same answer.
		g.hub.SendTo(connID, map[string]any{
			"type":      "delete-error",
			"messageId": messageID,
			"reason":    "message not found or not yours",
		})
		return
	}

	g.hub.Broadcast(map[string]any{
		"type":      "message-deleted",
		"messageId": messageID,
	})
}

func (g *Gateway) broadcastTyping(connID string, typing bool) {
	id, ok := g.registry.Lookup(connID)
	if !ok {
		return
	}
	g.hub.BroadcastExcept(connID, map[string]any{
		"type":     "typing-state",
		"username": id.Name(),
		"typing":   typing,
	})
}

func errorPayload(msg string) map[string]any {
	return map[string]any{
		"type":  "error",
		"error": msg,
	}
}
