package zonesync

import (
	"sync"
	"time"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/opmon"
)

// Broadcaster delivers one message to every connection joined to a zone's
// broadcast group. Per-recipient delivery failures are isolated by the
// implementation and never fail the whole send.
type Broadcaster interface {
	SendToZone(zoneID string, event string, payload interface{}) error
}

// Dispatcher drains zone buffers once per tick and emits a bounded number of
// network messages per zone. The broadcaster may be attached after the
// dispatcher starts receiving flush calls; until then flushes are abandoned
// and events stay queued.
type Dispatcher struct {
	agg *Aggregator

	mu          sync.RWMutex
	broadcaster Broadcaster
}

// NewDispatcher creates a dispatcher draining the given aggregator
func NewDispatcher(agg *Aggregator) *Dispatcher {
	return &Dispatcher{agg: agg}
}

// AttachBroadcaster attaches the transport broadcaster. Until attached,
// flushes leave all buffers untouched.
func (d *Dispatcher) AttachBroadcaster(b Broadcaster) {
	d.mu.Lock()
	d.broadcaster = b
	d.mu.Unlock()
}

// Flush drains and emits all pending events of one zone. Zones with nothing
// queued cause no transport calls. Never called concurrently for the same
// zone; different zones may flush independently.
func (d *Dispatcher) Flush(zoneID string) {
	d.mu.RLock()
	b := d.broadcaster
	d.mu.RUnlock()

	if b == nil {
		// startup ordering race: keep events queued for a later flush
		// instead of dropping them
		gamelog.Errorf("zonesync: flush of zone %s abandoned, broadcaster not attached", zoneID)
		return
	}

	zb := d.agg.take(zoneID)
	if zb == nil {
		return
	}

	op := opmon.StartOperation("zonesync.flush")
	defer op.Finish(time.Millisecond * 50)

	// spawns first so no client sees an update for an entity it has not
	// been told exists
	for _, spawn := range zb.spawns {
		d.send(b, zoneID, EventEnemySpawned, spawn)
	}
	if len(zb.updates) > 0 {
		d.send(b, zoneID, EventEntityUpdate, &EntityUpdateBatch{Updates: zb.updates})
	}
	if len(zb.actions) > 0 {
		d.send(b, zoneID, EventCombatAction, &CombatActionBatch{Actions: zb.actions})
	}
	for _, death := range zb.deaths {
		d.send(b, zoneID, EventEntityDied, death)
	}
	if len(zb.drops) > 0 {
		d.send(b, zoneID, EventItemsDropped, &ItemDropBatch{Items: zb.drops})
	}
	for _, pickup := range zb.pickups {
		d.send(b, zoneID, EventItemPickedUp, pickup)
	}
	for _, despawn := range zb.despawns {
		d.send(b, zoneID, EventItemDespawned, despawn)
	}
}

// FlushPending flushes every zone that had activity this tick
func (d *Dispatcher) FlushPending() {
	for _, zoneID := range d.agg.PendingZones() {
		d.Flush(zoneID)
	}
}

func (d *Dispatcher) send(b Broadcaster, zoneID string, event string, payload interface{}) {
	if err := b.SendToZone(zoneID, event, payload); err != nil {
		// transport faults must never propagate back into the simulation
		gamelog.Errorf("zonesync: send %s to zone %s failed: %s", event, zoneID, err)
	}
}
