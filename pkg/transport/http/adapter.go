package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nilcaream/bobai/pkg/apierr"
	"github.com/nilcaream/bobai/pkg/transport"
)

// Adapter serves prompts over HTTP: POST a prompt frame and read outbound
// frames back as an SSE stream, or DELETE to cancel one still in flight
// (spec.md §4.7, §5).
type Adapter struct {
	handler  transport.PromptHandler
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     1 << 20, // 1 MB; prompts are small, tool output is capped upstream
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter wrapping handler with the given
// middleware, applied in order.
func NewAdapter(handler transport.PromptHandler, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}

	a := &Adapter{
		handler:  handler,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/prompts", a.handlePrompt)
	a.mux.HandleFunc("DELETE /v1/prompts/{id}", a.handleCancel)

	return a
}

// Handler returns the http.Handler for this adapter.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header into context
// and back onto the response, mirroring the request id the PromptHandler
// chain assigns internally.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handlePrompt handles POST /v1/prompts: decode one prompt frame, run it
// through the handler chain, and stream outbound frames back as SSE.
func (a *Adapter) handlePrompt(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.config.MaxBodySize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	in, err := transport.DecodeInbound(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var registeredID string
	sink := newSSESink(w, func(sessionID string) {
		registeredID = sessionID
		a.inflight.Register(sessionID, cancel)
	})

	handlerErr := a.handler.HandlePrompt(ctx, in, sink)

	if registeredID != "" {
		a.inflight.Remove(registeredID)
	}

	sink.finish()

	if handlerErr != nil {
		a.writeHandlerError(w, sink, handlerErr)
	}
}

// handleCancel handles DELETE /v1/prompts/{id}, cancelling a prompt still
// streaming under session id {id}.
func (a *Adapter) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if a.inflight.Cancel(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONError(w, http.StatusNotFound, "no in-flight prompt for session "+id)
}

// writeHandlerError reports a handler failure. If SSE framing has already
// started, the error was already delivered as an outbound error frame by
// the handler itself (spec.md §4.6) — this only covers failures before
// any frame was written.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, sink *sseSink, err error) {
	if sink.hasStartedStreaming() {
		return
	}
	var apiErr *apierr.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierr.NewServerError(err.Error())
	}
	writeJSONError(w, transport.HTTPStatusFromError(apiErr), apiErr.Message)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
