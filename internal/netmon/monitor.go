// Package netmon observes connectivity and link quality.
//
// Push transitions from the Platform are confirmed with an HTTP HEAD probe
// when a probe URL is configured; the periodic probe overrides stale push
// state immediately.
package netmon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Defaults for the reachability probe.
const (
	DefaultProbeInterval = 30 * time.Second
	DefaultProbeTimeout  = 5 * time.Second
)

// Thresholds below which a connection is considered slow.
const (
	slowDownlinkMbps = 0.5
	slowRTT          = 1500 * time.Millisecond
)

// Status is a snapshot of connectivity and link quality.
type Status struct {
	Type     ConnectionType `json:"type"`
	Downlink float64        `json:"downlink"`
	RTT      time.Duration  `json:"rtt"`
	IsOnline bool           `json:"is_online"`
	SaveData bool           `json:"save_data"`
}

// Listener receives the status after every online/offline transition.
type Listener func(Status)

// Config configures a Monitor.
type Config struct {
	HTTPClient    *http.Client
	Logger        *slog.Logger
	ProbeURL      string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// Monitor tracks whether the remote is reachable.
type Monitor struct {
	platform   Platform
	client     *http.Client
	logger     *slog.Logger
	listeners  map[int]Listener
	cancelPush func()
	stop       context.CancelFunc
	ctx        context.Context
	probeURL   string
	interval   time.Duration
	probeRTT   time.Duration
	nextID     int
	online     bool
	started    bool
	wg         sync.WaitGroup
	mu         sync.RWMutex
}

// New creates a monitor seeded from platform.Online().
func New(platform Platform, cfg Config) *Monitor {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.ProbeTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Monitor{
		platform:  platform,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger,
		probeURL:  cfg.ProbeURL,
		interval:  cfg.ProbeInterval,
		listeners: make(map[int]Listener),
		online:    platform.Online(),
		ctx:       context.Background(),
	}
}

// Start subscribes to platform transitions and, when a probe URL is set,
// runs an initial probe and the periodic probe loop until ctx is done or
// Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.ctx, m.stop = context.WithCancel(ctx)
	m.mu.Unlock()

	cancelPush := m.platform.Subscribe(m.handlePush)

	m.mu.Lock()
	m.cancelPush = cancelPush
	m.mu.Unlock()

	if m.probeURL == "" {
		return
	}

	m.Probe(m.ctx)

	m.wg.Add(1)
	go m.probeLoop(m.ctx)
}

// Stop unsubscribes from the platform and stops the probe loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	stop, cancelPush := m.stop, m.cancelPush
	m.cancelPush = nil
	m.mu.Unlock()

	if cancelPush != nil {
		cancelPush()
	}
	stop()
	m.wg.Wait()
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// handlePush handles a platform transition. Without a probe URL the
// transition is trusted as is.
func (m *Monitor) handlePush(online bool) {
	m.logger.Debug("Connectivity transition from platform", "online", online)

	if m.probeURL == "" {
		m.setOnline(online)
		return
	}

	m.mu.RLock()
	ctx := m.ctx
	m.mu.RUnlock()

	// Доверяем переходу только после подтверждения пробой
	m.Probe(ctx)
}

// Probe checks reachability of the probe URL, updates the online state and
// returns it. Without a probe URL it returns the current state.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.probeURL == "" {
		return m.IsOnline()
	}

	reachable, rtt := m.probe(ctx)
	if ctx.Err() != nil {
		return m.IsOnline()
	}

	if reachable {
		m.mu.Lock()
		m.probeRTT = rtt
		m.mu.Unlock()
	}
	m.setOnline(reachable)

	return reachable
}

func (m *Monitor) probe(ctx context.Context) (bool, time.Duration) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.logger.Error("Failed to create probe request", "url", m.probeURL, "error", err)
		return false, 0
	}

	started := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("Reachability probe failed", "url", m.probeURL, "error", err)
		return false, 0
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		m.logger.Debug("Reachability probe unhealthy", "url", m.probeURL, "status", resp.StatusCode)
		return false, 0
	}
	return true, time.Since(started)
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.logger.Info("Connectivity changed", "online", online)

	status := m.Status()
	for _, l := range listeners {
		m.notify(l, status)
	}
}

func (m *Monitor) notify(l Listener, status Status) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Connectivity listener panicked", "panic", fmt.Sprint(r))
		}
	}()
	l(status)
}

// Subscribe registers a transition listener and returns a function that
// removes it.
func (m *Monitor) Subscribe(l Listener) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// IsOnline returns the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Status returns the connectivity and link quality snapshot. Without a
// QualityReporter the type is unknown; the probe RTT fills a missing RTT.
func (m *Monitor) Status() Status {
	q := Quality{Type: ConnectionUnknown}
	if reporter, ok := m.platform.(QualityReporter); ok {
		q = reporter.Quality()
	}
	if q.Type == "" {
		q.Type = ConnectionUnknown
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if q.RTT == 0 {
		q.RTT = m.probeRTT
	}
	return Status{
		IsOnline: m.online,
		Type:     q.Type,
		Downlink: q.Downlink,
		RTT:      q.RTT,
		SaveData: q.SaveData,
	}
}

// IsSlowConnection reports a 2g class link, a downlink below 0.5 Mbps or an
// RTT above 1.5s. Unknown values never make a link slow.
func (m *Monitor) IsSlowConnection() bool {
	s := m.Status()
	switch s.Type {
	case ConnectionSlow2G, Connection2G:
		return true
	}
	if s.Downlink > 0 && s.Downlink < slowDownlinkMbps {
		return true
	}
	return s.RTT > slowRTT
}

// ShouldSaveData reports whether callers should reduce transfer volume.
func (m *Monitor) ShouldSaveData() bool {
	return m.Status().SaveData || m.IsSlowConnection()
}
