package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/bot"
	"github.com/ent0n29/tojibot/internal/protocol"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleChatWS serves the chat websocket. Every inbound frame is handled on
// its own goroutine; all writes go through a single writer goroutine.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.metrics.ObserveBotEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	send := func(v any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- v:
			return true
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, conn, outbound)
	}()

	send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "ready", Detail: s.cfg.Persona.Name})

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	var handlers sync.WaitGroup
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}

		handlers.Add(1)
		go func(frame any) {
			defer handlers.Done()
			send(s.handleFrame(ctx, frame))
		}(parsed)
	}

	cancel()
	handlers.Wait()
	<-writerDone
	s.metrics.ObserveBotEvent("ws_disconnected")
}

func (s *Server) handleFrame(ctx context.Context, frame any) any {
	switch m := frame.(type) {
	case protocol.ClientMessage:
		reqID := requestID(m.RequestID)
		reply := s.router.HandleMessage(ctx, bot.Message{
			UserID:   m.UserID,
			Content:  m.Content,
			IsDirect: m.IsDirect,
		})
		return protocol.BotReply{Type: protocol.TypeBotReply, RequestID: reqID, Handled: reply.Handled, Text: reply.Text}
	case protocol.ClientCommand:
		reqID := requestID(m.RequestID)
		reply, err := s.router.HandleCommand(ctx, bot.Command{Name: m.Name, Options: m.Options, UserID: m.UserID})
		switch {
		case errors.Is(err, bot.ErrUnknownCommand):
			return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, RequestID: reqID, Code: "unknown_command", Detail: err.Error()}
		case errors.Is(err, bot.ErrMissingOption):
			return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, RequestID: reqID, Code: "missing_option", Detail: err.Error()}
		case err != nil:
			s.logger.Error("command failed",
				zap.String("op", "httpapi.ws_command"), zap.String("user_id", m.UserID), zap.Error(err))
			return protocol.BotReply{Type: protocol.TypeBotReply, RequestID: reqID, Handled: true, Text: s.cfg.Persona.FallbackReply}
		}
		return protocol.BotReply{Type: protocol.TypeBotReply, RequestID: reqID, Handled: reply.Handled, Text: reply.Text}
	default:
		return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "unsupported_message"}
	}
}

// writeLoop owns the connection's write side. When a reply cannot be
// written, one error_event is attempted in its place before giving up on the
// connection.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbound <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbound:
			err := writeFrame(conn, msg)
			if err == nil {
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
				continue
			}
			s.metrics.ObserveWSWriteError("write_json")

			if reply, ok := msg.(protocol.BotReply); ok {
				alt := protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					RequestID: reply.RequestID,
					Code:      "reply_undeliverable",
					Retryable: true,
					Detail:    s.cfg.Persona.FallbackReply,
				}
				if altErr := writeFrame(conn, alt); altErr == nil {
					continue
				}
				s.metrics.ObserveWSWriteError("alternate_reply")
			}
			s.logger.Warn("websocket write failed",
				zap.String("op", "httpapi.ws_write"), zap.Error(err))
			cancel()
			return
		}
	}
}

var writeFrame = func(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}

func requestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientMessage:
		return m.Type, true
	case protocol.ClientCommand:
		return m.Type, true
	case protocol.BotReply:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
