package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/realtime"
	"github.com/immxrtalbeast/burnchat/internal/service"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

var errRoomDestroyed = errors.New("room destroyed")

// RealtimeController streams room events to browsers over a websocket.
// The connection is read only from the client's point of view; inbound
// frames other than control frames are ignored.
type RealtimeController struct {
	events   realtime.Subscriber
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewRealtimeController(events realtime.Subscriber, allowedOrigins []string, log *slog.Logger) *RealtimeController {
	if log == nil {
		log = slog.Default()
	}
	return &RealtimeController{
		events: events,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (c *RealtimeController) Stream(ctx *gin.Context) {
	const op = "http.realtime.stream"

	auth := authFrom(ctx)
	log := c.log.With(slog.String("op", op), slog.String("room_id", auth.RoomID))

	// Outlives the handler's request context once the connection is hijacked.
	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe before upgrading so nothing published after the handshake is missed.
	sub, err := c.events.Subscribe(streamCtx, auth.RoomID)
	if err != nil {
		log.Error("failed to subscribe", sl.Err(err))
		writeError(ctx, fmt.Errorf("%s: %w: %w", op, service.ErrStoreUnavailable, err))
		return
	}
	defer sub.Close()

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Debug("failed to upgrade connection", sl.Err(err))
		return
	}
	defer conn.Close()

	log.Debug("client connected")

	g, gctx := errgroup.WithContext(streamCtx)
	g.Go(func() error {
		// Closing the socket unblocks the read pump.
		defer conn.Close()
		return writePump(gctx, conn, sub.Events())
	})
	g.Go(func() error {
		return readPump(conn)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errRoomDestroyed) {
		log.Debug("client disconnected", sl.Err(err))
		return
	}
	log.Debug("client disconnected")
}

func writePump(ctx context.Context, conn *websocket.Conn, events <-chan domain.Event) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return err
			}
			if event.Name == domain.EventRoomDestroyed {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(domain.EventRoomDestroyed))
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return errRoomDestroyed
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
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
