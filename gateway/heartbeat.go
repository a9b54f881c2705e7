package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/apollo/readiness/pkg/metrics"
	"k8s.io/utils/clock"
)

const defaultStaleMultiplier = 3

// heartbeatTracker remembers when each device was last heard from and decides when it is
// stale. A device is stale once it has been silent for staleMultiplier heartbeat intervals.
type heartbeatTracker struct {
	clock           clock.PassiveClock
	defaultInterval time.Duration
	staleMultiplier int

	mu         sync.RWMutex
	lastSeen   map[string]time.Time
	lastReport map[string]time.Time
	hints      map[string]int
}

func newHeartbeatTracker(clk clock.PassiveClock, defaultInterval time.Duration, staleMultiplier int) *heartbeatTracker {
	if staleMultiplier <= 0 {
		staleMultiplier = defaultStaleMultiplier
	}
	return &heartbeatTracker{
		clock:           clk,
		defaultInterval: defaultInterval,
		staleMultiplier: staleMultiplier,
		lastSeen:        make(map[string]time.Time),
		lastReport:      make(map[string]time.Time),
		hints:           make(map[string]int),
	}
}

// normalize falls back to the configured interval, then to defaultHeartbeatSeconds.
func (h *heartbeatTracker) normalize(hb int) int {
	if hb <= 0 {
		hb = int(h.defaultInterval.Seconds())
		if hb <= 0 {
			hb = defaultHeartbeatSeconds
		}
	}
	return hb
}

func (h *heartbeatTracker) staleAfter(hb int) time.Duration {
	return time.Duration(h.normalize(hb)*h.staleMultiplier) * time.Second
}

// tickInterval is how often the staleness loop scans devices.
func (h *heartbeatTracker) tickInterval() time.Duration {
	return time.Duration(h.normalize(0)) * time.Second
}

// advertise returns the heartbeat interval handed to the device and pins it as the device's hint.
func (h *heartbeatTracker) advertise(device string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	hb := h.normalize(h.hints[device])
	h.hints[device] = hb
	return hb
}

// isStale reports whether the device has never been seen or has been silent too long.
func (h *heartbeatTracker) isStale(device string) bool {
	h.mu.RLock()
	last, ok := h.lastSeen[device]
	hb := h.hints[device]
	h.mu.RUnlock()
	return !ok || h.clock.Since(last) > h.staleAfter(hb)
}

// recordReport counts a report or connect as a heartbeat.
func (h *heartbeatTracker) recordReport(device string) {
	now := h.clock.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSeen[device] = now
	h.lastReport[device] = now
	h.hints[device] = h.normalize(h.hints[device])
}

// recordDesiredPoll only counts a desired poll as a heartbeat if we have seen a recent report
// from the same device. This prevents devices from appearing healthy when they only read
// desired state without sending reports.
func (h *heartbeatTracker) recordDesiredPoll(device string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lastReport, ok := h.lastReport[device]
	if !ok || h.clock.Since(lastReport) > h.staleAfter(h.hints[device]) {
		return
	}
	h.lastSeen[device] = h.clock.Now()
}

// stale returns every known device past its staleness window with the time since it was last seen.
func (h *heartbeatTracker) stale() map[string]time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]time.Duration)
	for device, seen := range h.lastSeen {
		age := h.clock.Since(seen)
		if age > h.staleAfter(h.hints[device]) {
			out[device] = age
		}
	}
	return out
}

func (g *Gateway) stalenessLoop(ctx context.Context) {
	ticker := g.clock.NewTicker(g.heartbeats.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			g.markStaleDevices(ctx)
		}
	}
}

func (g *Gateway) markStaleDevices(ctx context.Context) {
	stale := g.heartbeats.stale()
	metrics.StaleDevices.Set(float64(len(stale)))
	for device, age := range stale {
		if err := g.markDeviceDisconnected(ctx, device, age); err != nil {
			g.log.Error(err, "mark device disconnected", "device", device)
		}
	}
}
