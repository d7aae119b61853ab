package netmon

import (
	"sync"
	"time"
)

// ConnectionType describes the effective link type reported by the platform.
type ConnectionType string

const (
	ConnectionUnknown ConnectionType = "unknown"
	ConnectionSlow2G  ConnectionType = "slow-2g"
	Connection2G      ConnectionType = "2g"
	Connection3G      ConnectionType = "3g"
	Connection4G      ConnectionType = "4g"
	ConnectionWiFi    ConnectionType = "wifi"
	ConnectionEther   ConnectionType = "ethernet"
)

// Quality is a best-effort description of the current link.
type Quality struct {
	Type     ConnectionType `json:"type"`
	Downlink float64        `json:"downlink"` // Downlink оценка пропускной способности, Мбит/с
	RTT      time.Duration  `json:"rtt"`
	SaveData bool           `json:"save_data"`
}

// Platform is the host connectivity signal.
type Platform interface {
	// Online returns the current connectivity signal.
	Online() bool
	// Subscribe registers fn for online/offline transitions and returns a
	// function that removes it.
	Subscribe(fn func(online bool)) (cancel func())
}

// QualityReporter is optionally implemented by a Platform that knows the
// link quality.
type QualityReporter interface {
	Quality() Quality
}

// ManualPlatform is a Platform driven explicitly by the host, e.g. from a CLI
// flag or a test.
type ManualPlatform struct {
	listeners map[int]func(bool)
	quality   Quality
	nextID    int
	online    bool
	mu        sync.Mutex
}

// NewManualPlatform creates a platform in the given connectivity state.
func NewManualPlatform(online bool) *ManualPlatform {
	return &ManualPlatform{
		online:    online,
		listeners: make(map[int]func(bool)),
		quality:   Quality{Type: ConnectionUnknown},
	}
}

// Online implements Platform.
func (p *ManualPlatform) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Subscribe implements Platform.
func (p *ManualPlatform) Subscribe(fn func(online bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// SetOnline changes the connectivity state and notifies listeners
// synchronously when it actually changed.
func (p *ManualPlatform) SetOnline(online bool) {
	p.mu.Lock()
	if p.online == online {
		p.mu.Unlock()
		return
	}
	p.online = online
	listeners := make([]func(bool), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
}

// Quality implements QualityReporter.
func (p *ManualPlatform) Quality() Quality {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quality
}

// SetQuality replaces the reported link quality.
func (p *ManualPlatform) SetQuality(q Quality) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quality = q
}
