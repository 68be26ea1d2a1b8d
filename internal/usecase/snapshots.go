package usecase

import (
	"sort"
	"sync"

	"FlowTrader/internal/domain/models"
)

// Board holds the latest snapshot per market for readers outside the event loop.
type Board struct {
	mu    sync.RWMutex
	snaps map[string]models.SessionSnapshot
}

func NewBoard() *Board {
	return &Board{snaps: make(map[string]models.SessionSnapshot)}
}

// Track registers markets so they are listed before their first snapshot.
func (b *Board) Track(markets ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range markets {
		if _, ok := b.snaps[m]; !ok {
			b.snaps[m] = models.SessionSnapshot{Market: m}
		}
	}
}

func (b *Board) Publish(s models.SessionSnapshot) {
	b.mu.Lock()
	b.snaps[s.Market] = s
	b.mu.Unlock()
}

func (b *Board) Get(market string) (models.SessionSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.snaps[market]
	return s, ok
}

// List returns all snapshots ordered by market.
func (b *Board) List() []models.SessionSnapshot {
	b.mu.RLock()
	out := make([]models.SessionSnapshot, 0, len(b.snaps))
	for _, s := range b.snaps {
		out = append(out, s)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out
}
