package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/pipeline"
	"github.com/coal/siterisk/internal/policy"
)

const topEntries = 5

var eventCounter atomic.Uint64

// Hub manages WebSocket clients, scan history broadcasting, and stats.
type Hub struct {
	scans  *RingBuffer[*ScanRecord]
	events *RingBuffer[*DashboardEvent]
	stats  *Stats
	policy *policy.Policy
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a new dashboard hub.
func NewHub(pol *policy.Policy, logger zerolog.Logger) *Hub {
	return &Hub{
		scans:   NewRingBuffer[*ScanRecord](defaultScanBufferSize),
		events:  NewRingBuffer[*DashboardEvent](defaultEventBufferSize),
		stats:   NewStats(),
		policy:  pol,
		logger:  logger.With().Str("component", "dashboard").Logger(),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// OnEvent is the observer callback to register with the pipeline.
func (h *Hub) OnEvent(pe pipeline.PipelineEvent) {
	id := fmt.Sprintf("evt-%d", eventCounter.Add(1))

	switch pe.Kind {
	case pipeline.EventScanCompleted:
		if pe.Result == nil {
			return
		}
		rec := &ScanRecord{ID: id, Result: pe.Result}
		h.scans.Add(rec)
		h.stats.RecordScan(pe.Result)
		h.broadcast(WSMessage{Type: "scan_complete", Payload: rec})
	default:
		if pe.Kind == pipeline.EventHighRisk {
			h.stats.RecordHighRisk()
		}
		event := &DashboardEvent{ID: id, PipelineEvent: pe}
		h.events.Add(event)
		h.broadcast(WSMessage{Type: "event", Payload: event})
	}
}

// Register adds a WebSocket client and sends it the initial state.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	initial := WSMessage{
		Type: "initial_state",
		Payload: InitialState{
			Scans:  h.scans.All(),
			Events: h.events.All(),
			Stats:  h.stats.Snapshot(),
			Policy: h.policy,
		},
	}

	data, err := json.Marshal(initial)
	if err != nil {
		return
	}
	conn.Write(context.Background(), websocket.MessageText, data)
}

// Unregister removes a WebSocket client.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// broadcast sends a message to all connected clients.
func (h *Hub) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("encoding broadcast")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		err := c.Write(context.Background(), websocket.MessageText, data)
		if err != nil {
			h.Unregister(c)
		}
	}
}

// StartStatsBroadcast pushes stats snapshots to all clients every interval.
func (h *Hub) StartStatsBroadcast(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := WSMessage{
				Type:    "stats_update",
				Payload: h.stats.Snapshot(),
			}
			h.broadcast(msg)
		}
	}
}

// Scans returns the scan history (for API handlers).
func (h *Hub) Scans() *RingBuffer[*ScanRecord] {
	return h.scans
}

// Latest returns the newest scan with its riskiest plugins and roles.
func (h *Hub) Latest() (*LatestView, bool) {
	rec, ok := h.scans.Last()
	if !ok {
		return nil, false
	}
	res := rec.Result

	plugins := append([]model.PluginRiskProfile(nil), res.Plugins...)
	sort.SliceStable(plugins, func(i, j int) bool { return plugins[i].Total > plugins[j].Total })
	roles := append([]model.RoleRiskProfile(nil), res.Roles...)
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].RiskScore > roles[j].RiskScore })

	return &LatestView{
		Result:     res,
		TopPlugins: plugins[:min(len(plugins), topEntries)],
		TopRoles:   roles[:min(len(roles), topEntries)],
	}, true
}

// StatsSnapshot returns a snapshot of accumulated stats.
func (h *Hub) StatsSnapshot() *StatsSnapshot {
	return h.stats.Snapshot()
}

// PolicyConfig returns the loaded policy.
func (h *Hub) PolicyConfig() *policy.Policy {
	return h.policy
}
