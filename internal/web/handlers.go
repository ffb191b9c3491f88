package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jaminalder/ndtictactoe/internal/app"
	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/jaminalder/ndtictactoe/internal/strategy"
	"go.uber.org/zap"
)

type handlers struct {
	svc      *app.Service
	tpl      *templates
	log      *zap.Logger
	upgrader websocket.Upgrader
}

type playerRequest struct {
	Strategy string                 `json:"strategy"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type createRequest struct {
	Dimension int              `json:"dimension"`
	Size      int              `json:"size"`
	Players   [2]playerRequest `json:"players"`
	Seed      int64            `json:"seed"`
	Unique    bool             `json:"unique_lines"`
}

func (c createRequest) spec() app.MatchSpec {
	return app.MatchSpec{
		Dimension:  c.Dimension,
		Size:       c.Size,
		Strategies: [2]string{c.Players[0].Strategy, c.Players[1].Strategy},
		Options:    [2]map[string]interface{}{c.Players[0].Options, c.Players[1].Options},
		Seed:       c.Seed,
		Unique:     c.Unique,
	}
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Strategies: hostedStrategies(),
		Players:    [2]string{strategy.Prioritized, strategy.Random},
		Matches:    h.svc.List(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", data))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	isJSON := isJSONRequest(r)
	req, err := decodeCreate(r, isJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := h.svc.CreateMatch(req.spec())
	if err != nil {
		writeError(w, createStatus(err), err.Error())
		return
	}
	if isJSON {
		writeJSON(w, http.StatusCreated, st)
		return
	}
	http.Redirect(w, r, "/matches/"+st.ID, http.StatusSeeOther)
}

func decodeCreate(r *http.Request, isJSON bool) (createRequest, error) {
	var req createRequest
	if isJSON {
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	var err error
	if req.Dimension, err = formInt(r, "dimension", 2); err != nil {
		return req, err
	}
	if req.Size, err = formInt(r, "size", 3); err != nil {
		return req, err
	}
	seed, err := formInt(r, "seed", 0)
	if err != nil {
		return req, err
	}
	req.Seed = int64(seed)
	req.Players[0].Strategy = formString(r, "player0", strategy.Prioritized)
	req.Players[1].Strategy = formString(r, "player1", strategy.Random)
	return req, nil
}

func createStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidDimension),
		errors.Is(err, domain.ErrInvalidSize),
		errors.Is(err, app.ErrInteractive),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, strategy.ErrBadOptions):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requireMatch rejects unknown ids before the match handlers run.
func (h *handlers) requireMatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !app.ValidID(id) {
			http.NotFound(w, r)
			return
		}
		if _, ok := h.svc.Get(id); !ok {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) renderBoard(st app.MatchState) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(st))
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	st, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID    string
		Board boardData
	}{ID: st.ID, Board: newBoardData(*st)}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.match, "", data))
}

func (h *handlers) board(w http.ResponseWriter, r *http.Request) {
	st, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*st))
}

func (h *handlers) getJSON(w http.ResponseWriter, r *http.Request) {
	st, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) listJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.List())
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// plain requests only get the headers
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	emit := func(st app.MatchState) {
		_, _ = fmt.Fprintf(w, "event: board\n")
		_, _ = fmt.Fprintf(w, "data: %s\n\n", singleLine(h.renderBoard(st)))
		flusher.Flush()
	}
	// a match may have ended before the subscription
	if st, ok := h.svc.Get(id); ok {
		emit(*st)
		if st.Finished() {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case st, ok := <-ch:
			if !ok {
				return
			}
			emit(st)
			if st.Finished() {
				return
			}
		}
	}
}

// stream pushes JSON snapshots over a websocket until the match ends.
func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("match_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// drain client frames so close and ping are handled
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "not found"))
		return
	}
	defer unsub()

	st, ok := h.svc.Get(id)
	if !ok {
		return
	}
	if err := conn.WriteJSON(st); err != nil || st.Finished() {
		h.closeStream(conn)
		return
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case st, ok := <-ch:
			if !ok {
				h.closeStream(conn)
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
			if st.Finished() {
				h.closeStream(conn)
				return
			}
		}
	}
}

func (h *handlers) closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match over")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// singleLine strips newlines so a fragment fits one SSE data field.
func singleLine(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\n"), nil)
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := r.Form.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return n, nil
}

func formString(r *http.Request, key, def string) string {
	if v := r.Form.Get(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
