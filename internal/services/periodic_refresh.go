package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// PeriodicRefreshService keeps the POI collections warm and expires idle
// sessions on a fixed interval
type PeriodicRefreshService struct {
	pois     *POIService
	sessions *SessionService
	interval time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewPeriodicRefreshService creates a new periodic refresh service.
// sessions may be nil.
func NewPeriodicRefreshService(pois *POIService, sessions *SessionService, interval time.Duration) *PeriodicRefreshService {
	return &PeriodicRefreshService{
		pois:     pois,
		sessions: sessions,
		interval: interval,
	}
}

// StartPeriodicRefresh refreshes immediately and then on every interval
// until Stop or ctx ends
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	if p.interval <= 0 {
		log.Printf("Periodic refresh disabled (interval %v)", p.interval)
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	log.Printf("Starting periodic POI refresh every %v", p.interval)

	go p.refreshLoop(ctx, p.stopChan)
	return nil
}

// Stop gracefully stops the periodic refresh
func (p *PeriodicRefreshService) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
	log.Printf("Stopped periodic refresh service")
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Periodic refresh stopping due to context cancellation")
			return
		case <-stop:
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *PeriodicRefreshService) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := p.pois.RefreshAll(refreshCtx); err != nil {
		log.Printf("Periodic refresh failed: %v", err)
	}
	if p.sessions != nil {
		p.sessions.ExpireIdle(refreshCtx)
	}
}
