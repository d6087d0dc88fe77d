// internal/handlers/round_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dailyrumble/rumble/internal/models"
)

// roundEvent is what watchers receive whenever the day's round changes.
type roundEvent struct {
	Type  string        `json:"type"` // "round_replaced" or "winner_recorded"
	Round *models.Round `json:"round"`
}

// watcher is one connected game client.
type watcher struct {
	out    chan roundEvent
	cancel context.CancelFunc
}

// RoundHub fans round lifecycle events out to every connected watcher. It
// implements engine.Notifier, so the engine pushes into it directly after a
// regenerate or a winner recording.
type RoundHub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	logger   *logrus.Logger
}

// NewRoundHub builds an empty hub.
func NewRoundHub(logger *logrus.Logger) *RoundHub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RoundHub{
		watchers: make(map[*watcher]struct{}),
		logger:   logger,
	}
}

// RoundReplaced implements engine.Notifier.
func (h *RoundHub) RoundReplaced(round *models.Round) {
	h.broadcast(roundEvent{Type: "round_replaced", Round: round})
}

// WinnerRecorded implements engine.Notifier.
func (h *RoundHub) WinnerRecorded(round *models.Round) {
	h.broadcast(roundEvent{Type: "winner_recorded", Round: round})
}

// broadcast delivers the event to every watcher. A watcher whose buffer is
// full is dropped rather than allowed to stall the engine.
func (h *RoundHub) broadcast(ev roundEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		select {
		case w.out <- ev:
		default:
			h.logger.Warn("dropping slow round watcher")
			w.cancel()
			delete(h.watchers, w)
		}
	}
}

func (h *RoundHub) add(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers[w] = struct{}{}
}

func (h *RoundHub) remove(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watchers, w)
}

// WatchHandler upgrades the connection and streams round events until the
// client goes away. The current round is sent immediately on connect so a
// client never starts from a blank state.
func (s *Server) WatchHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"rumble"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "rumble" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the rumble subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wt := &watcher{out: make(chan roundEvent, 8), cancel: cancel}
	s.Hub.add(wt)
	defer s.Hub.remove(wt)
	s.Logger.Infof("round watcher connected from %s", r.RemoteAddr)

	if round, err := s.Engine.CurrentRound(ctx, todayFn()); err == nil {
		wt.out <- roundEvent{Type: "round_replaced", Round: round}
	} else {
		s.Logger.Warnf("initial round push failed: %v", err)
	}

	// Read pump: we expect no client messages, but reading surfaces the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "bye")
			return
		case ev := <-wt.out:
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Warnf("marshal round event: %v", err)
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				s.Logger.Infof("round watcher write failed, disconnecting: %v", err)
				return
			}
		}
	}
}
