package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courtside-live/broadcast-server/internal/config"
	"github.com/courtside-live/broadcast-server/internal/core"
	"github.com/courtside-live/broadcast-server/internal/proto"
)

// errPingFailed marks a write-loop exit caused by a failed keepalive ping,
// so the cleanup path can record it as an eviction rather than a normal
// disconnect.
var errPingFailed = errors.New("keepalive ping failed")

// WSHandler owns the transport lifecycle: it upgrades HTTP connections,
// registers clients with the hub, and runs the per-connection read and
// write loops. The write loop is the only code that touches the connection
// for output; everything else goes through the client's frame buffer.
type WSHandler struct {
	hub *core.Hub
	cfg config.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(uuid.NewString(), h.cfg.SendBuffer)
	if err := h.hub.Register(client); err != nil {
		conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The welcome frame goes out before the loops start so it is the first
	// frame the client sees.
	welcome, _ := json.Marshal(proto.Welcome(client.ID, core.KnownChannels(), time.Now()))
	if err := h.write(ctx, conn, welcome); err != nil {
		h.hub.Unregister(client.ID)
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	if errors.Is(err, errPingFailed) {
		h.hub.Evict(client, "ping_failed")
	} else {
		h.hub.Unregister(client.ID)
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop parses inbound control frames. A malformed or unknown frame is
// logged and ignored; it never terminates the connection. Every inbound
// frame refreshes the client's activity timestamp.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		client.Touch(time.Now())

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ignoring malformed frame")
			continue
		}

		switch inbound.Type {
		case proto.InboundTypeSubscribe:
			h.hub.Subscribe(client.ID, inbound.Channels)
			h.log.Debug().Str("client_id", client.ID).Strs("channels", inbound.Channels).Msg("client subscribed")
		case proto.InboundTypeUnsubscribe:
			h.hub.Unsubscribe(client.ID, inbound.Channels)
			h.log.Debug().Str("client_id", client.ID).Strs("channels", inbound.Channels).Msg("client unsubscribed")
		case proto.InboundTypePing:
			if frame, err := json.Marshal(proto.Pong(time.Now())); err == nil {
				client.EnqueueFrame(frame)
			}
		default:
			h.log.Warn().Str("client_id", client.ID).Str("type", inbound.Type).Msg("ignoring unknown frame type")
		}
	}
}

// writeLoop drains the client's frame buffer onto the wire and answers
// ping requests from the health monitor. When the client is closed by the
// hub it flushes whatever is already queued (e.g. the shutdown notice)
// before returning.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case frame := <-client.Frames():
			if err := h.write(ctx, conn, frame); err != nil {
				return err
			}
		case <-client.Pings():
			pctx, cancel := context.WithTimeout(ctx, h.cfg.PingTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("%w: %s", errPingFailed, err)
			}
		case <-client.Done():
			for {
				select {
				case frame := <-client.Frames():
					if err := h.write(ctx, conn, frame); err != nil {
						return nil
					}
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	wctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, frame)
}
