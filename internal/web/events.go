package web

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/starfederation/datastar-go/datastar"
)

type resourceHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newResourceHub() *resourceHub {
	return &resourceHub{subs: map[chan struct{}]struct{}{}}
}

func (h *resourceHub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// broadcast never blocks; a subscriber with a full buffer already has a
// pending wakeup.
func (h *resourceHub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *resourceHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

const keepAliveInterval = 25 * time.Second

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.serveDatastarSignalsStream(w, r, func() (map[string]any, error) {
		b := s.boardSnapshot()
		return map[string]any{
			"containers": b.Containers,
			"stale":      b.Stale,
			"version":    b.Version,
			"drag":       b.Drag,
		}, nil
	})
}

func (s *Server) serveDatastarSignalsStream(w http.ResponseWriter, r *http.Request, renderSignals func() (map[string]any, error)) {
	ch, cancel := s.hub.subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)

	if sig, err := renderSignals(); err == nil && sig != nil {
		_ = sse.MarshalAndPatchSignals(sig)
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			sig, err := renderSignals()
			if err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			if sig == nil {
				sig = map[string]any{}
			}
			_ = sse.MarshalAndPatchSignals(sig)
		}
	}
}
