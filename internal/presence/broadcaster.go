package presence

import (
	"context"
	"sync"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/hub"
	"github.com/weiawesome/majex-chat/pkg/log"
)

// Broadcaster announces the online count to every client whenever hub
// membership changes.
type Broadcaster struct {
	hub *hub.Hub

	mu      sync.Mutex
	running bool
	pending bool
}

// NewBroadcaster creates a Broadcaster and subscribes it to h.
func NewBroadcaster(h *hub.Hub) *Broadcaster {
	b := &Broadcaster{hub: h}
	h.AddListener(b)
	return b
}

// OnMembershipChange implements hub.Listener.
func (b *Broadcaster) OnMembershipChange(ctx context.Context, event hub.MembershipEvent) {
	b.Announce(ctx)
}

// Announce broadcasts the current count. Only one announcement is in flight
// at a time; changes that arrive meanwhile are folded into one more round,
// so the last count frame a client receives always reflects the latest
// membership. The count is read after the triggering mutation.
func (b *Broadcaster) Announce(ctx context.Context) {
	b.mu.Lock()
	b.pending = true
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true

	for b.pending {
		b.pending = false
		b.mu.Unlock()
		b.announceOnce(ctx)
		b.mu.Lock()
	}
	b.running = false
	b.mu.Unlock()
}

func (b *Broadcaster) announceOnce(ctx context.Context) {
	count := b.hub.Count()
	l := log.Ctx(ctx)

	delivered, err := b.hub.Broadcast(ctx, domain.NewOnlineCountFrame(count))
	if err != nil {
		l.Error().Err(err).Msg("failed to encode online count")
		return
	}

	l.Debug().Int(log.FieldOnline, count).Int(log.FieldRecipients, delivered).Msg("online count announced")
}
