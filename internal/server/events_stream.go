package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/fundcore/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer       = 256
	streamWriteTimeout = 5 * time.Second
	heartbeatInterval  = 30 * time.Second
)

// EventsStreamHandler streams bus events to compliance consumers over
// WebSocket or Server-Sent Events.
//
// Both endpoints accept ?categories=risk,fund to restrict the stream.
// Slow clients lose events rather than stall the bus.
type EventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus: bus,
		log: log.With().Str("component", "events_stream").Logger(),
	}
}

// parseCategories reads the comma separated categories filter. An empty
// filter allows everything.
func parseCategories(raw string) (map[events.Category]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	known := make(map[events.Category]bool)
	for _, c := range events.Categories() {
		known[c] = true
	}

	allowed := make(map[events.Category]bool)
	for _, part := range strings.Split(raw, ",") {
		c := events.Category(strings.TrimSpace(part))
		if !known[c] {
			return nil, fmt.Errorf("unknown event category %q", c)
		}
		allowed[c] = true
	}
	return allowed, nil
}

// subscribe feeds matching events into a buffered channel until the
// returned cancel is called.
func (h *EventsStreamHandler) subscribe(name string, allowed map[events.Category]bool) (<-chan events.Event, func()) {
	ch := make(chan events.Event, streamBuffer)
	sub := h.bus.Subscribe(events.CategoryAll, name, func(e events.Event) {
		if allowed != nil && !allowed[e.Category] {
			return
		}
		select {
		case ch <- e:
		default:
			h.log.Warn().Str("subscriber", name).Str("event_type", string(e.Type)).Msg("Stream buffer full, dropping event")
		}
	})
	return ch, sub.Unsubscribe
}

// ServeWebSocket handles GET /api/events/ws
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	allowed, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	name := "websocket:" + r.RemoteAddr
	stream, cancel := h.subscribe(name, allowed)
	defer cancel()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("Client connected to event websocket")

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Str("remote", r.RemoteAddr).Msg("Client disconnected from event websocket")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case e := <-stream:
			writeCtx, cancelWrite := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(writeCtx, conn, e)
			cancelWrite()
			if err != nil {
				h.log.Debug().Err(err).Msg("Event websocket write failed")
				return
			}
		}
	}
}

// ServeSSE handles GET /api/events/stream
func (h *EventsStreamHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	allowed, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream, cancel := h.subscribe("sse:"+r.RemoteAddr, allowed)
	defer cancel()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-stream:
			data, err := json.Marshal(e)
			if err != nil {
				h.log.Error().Err(err).Str("event_id", e.ID).Msg("Failed to encode event")
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
