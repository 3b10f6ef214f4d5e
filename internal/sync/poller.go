package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/repository"
)

// SyncState represents the current state of a reload.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the outcome of the most recent reload.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a reload completes.
type SyncResultMsg struct {
	Snapshot repository.Snapshot
	Error    error

	// NewTaskCount is the number of tasks that were not present in the
	// previous successful reload. It is zero for the first one.
	NewTaskCount int
}

// Reloader refreshes the repository from the store.
type Reloader interface {
	Reload(ctx context.Context) (repository.Snapshot, error)
}

// fetchTimeout is the maximum time allowed for a single reload.
const fetchTimeout = 30 * time.Second

// Poller reloads the board in the background, on a fixed interval and on
// demand.
type Poller struct {
	reloader  Reloader
	interval  time.Duration
	status    SyncStatus
	known     map[string]bool
	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	stopped   bool
}

// New creates a Poller. A non-positive interval disables periodic reloads;
// Refresh still works.
func New(r Reloader, interval time.Duration) *Poller {
	return &Poller{
		reloader:  r,
		interval:  interval,
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine and releases pending result waits.
// A stopped poller cannot be started again.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	close(p.stopCh)
	p.stopped = true
	p.running = false
}

// Refresh triggers an immediate reload. Requests made while one is already
// pending are merged.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Status returns the outcome of the most recent reload.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	p.reload()

	for {
		select {
		case <-p.stopCh:
			return
		case <-tick:
			p.reload()
		case <-p.triggerCh:
			p.reload()
		}
	}
}

// reload performs a single reload and sends a SyncResultMsg on the result
// channel.
func (p *Poller) reload() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	snap, err := p.reloader.Reload(ctx)
	if err != nil {
		log.Printf("sync: reload failed (%s): %v", apperrors.Code(err), err)
		p.setStatus(SyncError, err)
		p.sendResult(SyncResultMsg{Error: err})
		return
	}

	p.mu.Lock()
	newCount := 0
	known := make(map[string]bool, len(snap.Tasks))
	for _, t := range snap.Tasks {
		known[t.ID] = true
		if p.known != nil && !p.known[t.ID] {
			newCount++
		}
	}
	p.known = known
	p.mu.Unlock()

	p.setStatus(SyncIdle, nil)
	p.sendResult(SyncResultMsg{Snapshot: snap, NewTaskCount: newCount})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next reload result.
// This should be called after processing a SyncResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
