package calculator

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/keypad"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
)

const (
	maxKeyMessageSize = 512
	streamIdleTimeout = 10 * time.Minute
	writeTimeout      = 5 * time.Second
)

// Stream handles GET /calculator/sessions/{id}/ws: a WebSocket on which the
// client sends one KeyMessage per key press and receives one KeyReply each.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx).With(zap.String("session_id", id))

	if _, err := h.sessions.Display(ctx, id); err != nil {
		_, span := tracer.Start(ctx, "calculator.stream")
		recordSessionError(ctx, span, "stream", err, w)
		span.End()
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxKeyMessageSize)
	logger.Info("calculator stream opened")

	for {
		conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))

		var msg KeyMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("calculator stream read failed", zap.Error(err))
			}
			logger.Info("calculator stream closed")
			return
		}

		reply := KeyReply{Key: msg.Key}
		var pressErr error
		e, err := h.sessions.Apply(ctx, id, func(e *engine.Engine) {
			_, pressErr = keypad.Press(e, msg.Key)
		})

		switch {
		case errors.Is(err, session.ErrNotFound):
			reply.Error = "session not found"
		case err != nil:
			logger.Error("calculator stream apply failed", zap.Error(err))
			reply.Error = "session store failure"
		case pressErr != nil:
			reply.Error = pressErr.Error()
			errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "stream")))
		default:
			reply.Display = e.Display()
			inputsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("input", "stream")))
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn("calculator stream write failed", zap.Error(err))
			return
		}

		if err != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, reply.Error),
				time.Now().Add(writeTimeout))
			return
		}
	}
}
