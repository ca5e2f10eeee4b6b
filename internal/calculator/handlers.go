package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/keypad"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Request size limits. Bodies are capped before decoding; the JSON overhead
// allowance covers the surrounding object and field name.
const (
	maxExpressionLength = 4096
	maxKeys             = 256
	maxInputBodyBytes   = 1 << 10
	maxKeysBodyBytes    = 16 << 10
	jsonOverheadBytes   = 64
)

// decodeJSON reads at most limit bytes of r's body into v. The returned
// status is 413 when the body is over the limit and 400 otherwise.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) (int, error) {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
	if err == nil {
		return http.StatusOK, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, err
	}
	return http.StatusBadRequest, err
}

// Handler serves the calculator endpoints on top of a session manager.
type Handler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ---------------------------------------------------------------------------
// Handlers: session lifecycle
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.session.create")
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	id, display, err := h.sessions.Create(ctx)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "create", "session store failure", err, http.StatusInternalServerError, w)
		return
	}

	sessionCounter.Add(ctx, 1)
	span.SetAttributes(attribute.String("calculator.session.id", id))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator session created",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Display: display})
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "calculator.session.get",
		trace.WithAttributes(attribute.String("calculator.session.id", id)),
	)
	defer span.End()

	display, err := h.sessions.Display(ctx, id)
	if err != nil {
		recordSessionError(ctx, span, "get", err, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, SessionResponse{SessionID: id, Display: display})
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "calculator.session.delete",
		trace.WithAttributes(attribute.String("calculator.session.id", id)),
	)
	defer span.End()

	if err := h.sessions.Delete(ctx, id); err != nil {
		recordSessionError(ctx, span, "delete", err, w)
		return
	}

	span.SetStatus(codes.Ok, "")
	observability.LoggerWithTrace(ctx).Info("calculator session deleted",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// recordSessionError maps session manager failures onto HTTP statuses.
func recordSessionError(ctx context.Context, span trace.Span, opName string, err error, w http.ResponseWriter) {
	logger := observability.LoggerWithTrace(ctx)
	if errors.Is(err, session.ErrNotFound) {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return
	}
	observability.RecordError(ctx, span, logger, errorCounter, opName, "session store failure", err, http.StatusInternalServerError, w)
}

// ---------------------------------------------------------------------------
// Handlers: engine inputs
// ---------------------------------------------------------------------------

// Digit handles POST /calculator/sessions/{id}/digit
func (h *Handler) Digit(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "digit", func(r *http.Request) (func(*engine.Engine), error) {
		var req DigitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		if len(req.Digit) != 1 || req.Digit[0] < '0' || req.Digit[0] > '9' {
			return nil, fmt.Errorf("invalid digit %q", req.Digit)
		}
		d := req.Digit[0]
		return func(e *engine.Engine) { e.Digit(d) }, nil
	})
}

// Decimal handles POST /calculator/sessions/{id}/decimal
func (h *Handler) Decimal(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "decimal", noBody((*engine.Engine).Decimal))
}

// Operator handles POST /calculator/sessions/{id}/operator
func (h *Handler) Operator(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "operator", func(r *http.Request) (func(*engine.Engine), error) {
		var req OperatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		op, err := engine.ParseOperator(req.Operator)
		if err != nil {
			return nil, err
		}
		return func(e *engine.Engine) { e.Operator(op) }, nil
	})
}

// Clear handles POST /calculator/sessions/{id}/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "clear", noBody((*engine.Engine).Clear))
}

// Equals handles POST /calculator/sessions/{id}/equals
func (h *Handler) Equals(w http.ResponseWriter, r *http.Request) {
	h.handleInput(w, r, "equals", noBody((*engine.Engine).Equals))
}

func noBody(input func(*engine.Engine) string) func(*http.Request) (func(*engine.Engine), error) {
	return func(*http.Request) (func(*engine.Engine), error) {
		return func(e *engine.Engine) { input(e) }, nil
	}
}

// handleInput is the shared implementation for all single-input endpoints:
// a child span per input, decoded and validated input, the input applied
// under the session lock, metrics and a trace-correlated log line.
func (h *Handler) handleInput(w http.ResponseWriter, r *http.Request, input string, decode func(*http.Request) (func(*engine.Engine), error)) {
	id := chi.URLParam(r, "id")
	requestID := observability.RequestIDFromContext(r.Context())

	ctx, span := tracer.Start(r.Context(), fmt.Sprintf("calculator.%s", input),
		trace.WithAttributes(
			attribute.String("calculator.input", input),
			attribute.String("calculator.session.id", id),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxInputBodyBytes)
	press, err := decode(r)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, input, err.Error(), err, http.StatusBadRequest, w)
		return
	}

	start := time.Now()
	e, err := h.sessions.Apply(ctx, id, press)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms
	if err != nil {
		recordSessionError(ctx, span, input, err, w)
		return
	}

	recordInput(ctx, span, input, e, elapsed)

	logger.Info("calculator input applied",
		zap.String("input", input),
		zap.String("session_id", id),
		zap.String("display", e.Display()),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, InputResponse{
		SessionID: id,
		Input:     input,
		Display:   e.Display(),
	})
}

// recordInput records metrics and span data for one applied input. Failed
// evaluations are not request failures: the engine already shows the error
// display, so they are counted and noted on the span only.
func recordInput(ctx context.Context, span trace.Span, input string, e *engine.Engine, elapsed float64) {
	attrs := metric.WithAttributes(attribute.String("input", input))
	inputsCounter.Add(ctx, 1, attrs)

	span.SetAttributes(attribute.String("calculator.display", e.Display()))
	span.SetStatus(codes.Ok, "")

	if input != "equals" {
		return
	}

	evalHistogram.Record(ctx, elapsed, attrs)
	if err := e.Err(); err != nil {
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "evaluate")))
		span.AddEvent("evaluation.failed", trace.WithAttributes(attribute.String("error", err.Error())))
		observability.LoggerWithTrace(ctx).Warn("calculator evaluation failed", zap.Error(err))
		return
	}
	if result, err := strconv.ParseFloat(e.Display(), 64); err == nil {
		resultGauge.Record(ctx, result)
		span.AddEvent("evaluation.complete", trace.WithAttributes(attribute.Float64("result", result)))
	}
}

// ---------------------------------------------------------------------------
// Handler: key sequences (one child span per key)
// ---------------------------------------------------------------------------

// Keys handles POST /calculator/sessions/{id}/keys. It replays keyboard keys or
// button ids against the session, creating a child span for every key.
func (h *Handler) Keys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	requestID := observability.RequestIDFromContext(r.Context())

	ctx, span := tracer.Start(r.Context(), "calculator.keys",
		trace.WithAttributes(
			attribute.String("calculator.session.id", id),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	var req KeysRequest
	if status, err := decodeJSON(w, r, maxKeysBodyBytes, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "invalid request body", err, status, w)
		return
	}
	if len(req.Keys) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "no keys provided", errors.New("keys array is empty"), http.StatusBadRequest, w)
		return
	}
	if len(req.Keys) > maxKeys {
		err := fmt.Errorf("%d keys, limit is %d", len(req.Keys), maxKeys)
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "too many keys", err, http.StatusBadRequest, w)
		return
	}
	// Validate up front so a bad key never leaves the session half-updated.
	for i, key := range req.Keys {
		if !keypad.Known(key) {
			err := fmt.Errorf("%w %q at index %d", keypad.ErrUnknownKey, key, i)
			observability.RecordError(ctx, span, logger, errorCounter, "keys", err.Error(), err, http.StatusBadRequest, w)
			return
		}
	}

	span.SetAttributes(attribute.Int("calculator.keys.count", len(req.Keys)))

	steps := make([]KeyResult, 0, len(req.Keys))
	e, err := h.sessions.Apply(ctx, id, func(e *engine.Engine) {
		for i, key := range req.Keys {
			keyCtx, keySpan := tracer.Start(ctx, fmt.Sprintf("calculator.keys.%d", i),
				trace.WithAttributes(
					attribute.Int("calculator.key.index", i),
					attribute.String("calculator.key", key),
				),
			)

			display, _ := keypad.Press(e, key)
			inputsCounter.Add(keyCtx, 1, metric.WithAttributes(attribute.String("input", "key")))
			if err := e.Err(); err != nil && e.LastInput() == engine.KindEquals {
				errorCounter.Add(keyCtx, 1, metric.WithAttributes(attribute.String("operation", "evaluate")))
				keySpan.AddEvent("evaluation.failed", trace.WithAttributes(attribute.String("error", err.Error())))
			}

			keySpan.SetAttributes(attribute.String("calculator.display", display))
			keySpan.SetStatus(codes.Ok, "")
			keySpan.End()

			steps = append(steps, KeyResult{Key: key, Display: display})
		}
	})
	if err != nil {
		recordSessionError(ctx, span, "keys", err, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.display", e.Display()))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator keys applied",
		zap.String("session_id", id),
		zap.Int("keys", len(req.Keys)),
		zap.String("display", e.Display()),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, KeysResponse{
		SessionID: id,
		Steps:     steps,
		Display:   e.Display(),
	})
}

// ---------------------------------------------------------------------------
// Handler: stateless evaluation
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate. It evaluates a whole formula
// without a session.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	requestID := observability.RequestIDFromContext(r.Context())

	ctx, span := tracer.Start(r.Context(), "calculator.evaluate",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()
	logger := observability.LoggerWithTrace(ctx)

	var req EvaluateRequest
	if status, err := decodeJSON(w, r, maxExpressionLength+jsonOverheadBytes, &req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "invalid request body", err, status, w)
		return
	}
	if len(req.Expression) > maxExpressionLength {
		err := fmt.Errorf("expression is %d bytes, limit is %d", len(req.Expression), maxExpressionLength)
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "expression too long", err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.expression", req.Expression))

	start := time.Now()
	result, err := engine.Evaluate(req.Expression)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	attrs := metric.WithAttributes(attribute.String("input", "evaluate"))
	evalHistogram.Record(ctx, elapsed, attrs)

	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", err.Error(), err, http.StatusUnprocessableEntity, w)
		return
	}

	display := engine.FormatNumber(result)
	resultGauge.Record(ctx, result)
	span.AddEvent("evaluation.complete", trace.WithAttributes(
		attribute.Float64("result", result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator expression evaluated",
		zap.String("expression", req.Expression),
		zap.String("display", display),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Expression: req.Expression,
		Result:     result,
		Display:    display,
	})
}
