package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/realtime"
	"github.com/yoockh/recruitlink/internal/services"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
)

// WSHandler forwards Redis Pub/Sub messages to WebSocket clients. Events are
// published by whichever replica runs the attempt.
type WSHandler struct {
	proposals services.ProposalService
	subscribe subscribeFunc
	upgrader  websocket.Upgrader
}

// feed is a confirmed subscription to one channel.
type feed interface {
	Messages() <-chan string
	Close() error
}

type subscribeFunc func(ctx context.Context, channel string) (feed, error)

func NewWSHandler(proposals services.ProposalService, rdb *redis.Client, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		proposals: proposals,
		subscribe: redisSubscriber(rdb),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

type redisFeed struct {
	pubsub *redis.PubSub
	out    chan string
}

func (f *redisFeed) Messages() <-chan string { return f.out }
func (f *redisFeed) Close() error            { return f.pubsub.Close() }

// redisSubscriber returns once Redis has confirmed the subscription.
func redisSubscriber(rdb *redis.Client) subscribeFunc {
	return func(ctx context.Context, channel string) (feed, error) {
		pubsub := rdb.Subscribe(ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, err
		}
		f := &redisFeed{pubsub: pubsub, out: make(chan string)}
		go func() {
			defer close(f.out)
			for m := range pubsub.Channel() {
				select {
				case f.out <- m.Payload:
				case <-ctx.Done():
					return
				}
			}
		}()
		return f, nil
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := map[string]struct{}{}
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(typ int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(typ, b)
}

func (w *wsConn) writeText(b []byte) error { return w.write(websocket.TextMessage, b) }

// CVStatusWS streams cv_status events of one proposal to its parties. The
// first message is the current state so late subscribers do not miss a
// terminal status.
func (h *WSHandler) CVStatusWS(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	proposalID := c.Param("id")
	if _, err := h.proposals.CVStatus(c.Request.Context(), viewer, proposalID); err != nil {
		writeError(c, err)
		return
	}

	// read again once subscribed: an event published in between is covered
	// by the snapshot
	snapshot := func(ctx context.Context) ([]byte, error) {
		cv, err := h.proposals.CVStatus(ctx, viewer, proposalID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(models.CVStatusEvent{
			Type:          "cv_status",
			ProposalID:    proposalID,
			AttemptID:     cv.AttemptID,
			Status:        cv.Status,
			AnonymizedURL: cv.AnonymizedURL,
			Timestamp:     time.Now().UTC().Unix(),
		})
	}
	h.forward(c, realtime.CVStatusChannel(proposalID), snapshot)
}

// NotificationsWS streams the caller's notifications.
func (h *WSHandler) NotificationsWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	h.forward(c, realtime.NotificationChannel(userID), nil)
}

// forward subscribes to channel and relays its payloads. When snapshot is set
// it is written first, after the subscription is confirmed.
func (h *WSHandler) forward(c *gin.Context, channel string, snapshot func(context.Context) ([]byte, error)) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.subscribe(ctx, channel)
	if err != nil {
		return
	}
	defer sub.Close()

	if snapshot != nil {
		first, err := snapshot(ctx)
		if err != nil {
			return
		}
		if err := wc.writeText(first); err != nil {
			return
		}
	}

	// reader: only keeps the connection alive and notices the close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	msgs := sub.Messages()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := wc.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward as-is (payload is JSON)
			if err := wc.writeText([]byte(m)); err != nil {
				return
			}
		}
	}
}
