package zonesync

import (
	"sync"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/common"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
)

// MaxPendingPerCategory bounds buffered events per zone and category while
// the dispatcher cannot deliver. Overflow drops the oldest events.
const MaxPendingPerCategory = 4096

// zoneBuffers holds the pending events of one zone, one ordered slice per
// category. A zoneBuffers never exists empty: it is created on first enqueue
// and removed when the dispatcher drains it.
type zoneBuffers struct {
	spawns   []Spawn
	updates  []EntityUpdate
	actions  []CombatAction
	deaths   []Death
	drops    []ItemDrop
	pickups  []ItemPickup
	despawns []ItemDespawn

	// one-shot transitions are deduplicated by subject within the tick
	deathSeen   common.StringSet
	pickupSeen  common.StringSet
	despawnSeen common.StringSet
}

// Aggregator buffers world-state change events per zone until the flush
// dispatcher drains them. Enqueue operations never block on delivery.
// One aggregator instance is constructed per server process and injected
// everywhere it is needed.
type Aggregator struct {
	mu    sync.Mutex
	zones map[string]*zoneBuffers
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		zones: map[string]*zoneBuffers{},
	}
}

// buffers returns the buffer set of the zone, creating it lazily.
// Caller must hold agg.mu.
func (agg *Aggregator) buffers(zoneID string) *zoneBuffers {
	zb := agg.zones[zoneID]
	if zb == nil {
		zb = &zoneBuffers{
			deathSeen:   common.StringSet{},
			pickupSeen:  common.StringSet{},
			despawnSeen: common.StringSet{},
		}
		agg.zones[zoneID] = zb
	}
	return zb
}

func appendBounded[T any](buf []T, v T, zoneID string, category string) []T {
	if len(buf) >= MaxPendingPerCategory {
		gamelog.Warnf("zonesync: zone %s has %d pending %s events, dropping oldest", zoneID, len(buf), category)
		buf = buf[1:]
	}
	return append(buf, v)
}

// AddEntityUpdate enqueues a partial entity state change
func (agg *Aggregator) AddEntityUpdate(zoneID string, update EntityUpdate) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	zb.updates = appendBounded(zb.updates, update, zoneID, EventEntityUpdate)
	agg.mu.Unlock()
}

// AddCombatAction enqueues a resolved attack
func (agg *Aggregator) AddCombatAction(zoneID string, action CombatAction) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	zb.actions = appendBounded(zb.actions, action, zoneID, EventCombatAction)
	agg.mu.Unlock()
}

// AddDeath enqueues an entity death. A death is only meaningful once per
// entity per tick: two simultaneous lethal hits both report the death, only
// the first enqueue counts.
func (agg *Aggregator) AddDeath(zoneID string, death Death) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	if !zb.deathSeen.Contains(death.EntityID) {
		zb.deathSeen.Add(death.EntityID)
		zb.deaths = appendBounded(zb.deaths, death, zoneID, EventEntityDied)
	}
	agg.mu.Unlock()
}

// AddSpawn enqueues an enemy spawn. It also synthesizes the spawned entity's
// first EntityUpdate so the generic state stream and the one-shot spawn
// notification stay consistent.
func (agg *Aggregator) AddSpawn(zoneID string, spawn Spawn) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	zb.spawns = appendBounded(zb.spawns, spawn, zoneID, EventEnemySpawned)
	zb.updates = appendBounded(zb.updates, EntityUpdate{
		ID:     spawn.ID,
		X:      Float(spawn.X),
		Y:      Float(spawn.Y),
		Health: Int(spawn.Health),
		State:  spawn.State,
	}, zoneID, EventEntityUpdate)
	agg.mu.Unlock()
}

// AddItemDrop enqueues one dropped item. Drops from one loot event share a
// flush and are delivered as a single batch.
func (agg *Aggregator) AddItemDrop(zoneID string, drop ItemDrop) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	zb.drops = appendBounded(zb.drops, drop, zoneID, EventItemsDropped)
	agg.mu.Unlock()
}

// AddItemPickup enqueues a ground item pickup, deduplicated by item id
func (agg *Aggregator) AddItemPickup(zoneID string, pickup ItemPickup) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	if !zb.pickupSeen.Contains(pickup.ItemID) {
		zb.pickupSeen.Add(pickup.ItemID)
		zb.pickups = appendBounded(zb.pickups, pickup, zoneID, EventItemPickedUp)
	}
	agg.mu.Unlock()
}

// AddItemDespawn enqueues a ground item despawn, deduplicated by item id
func (agg *Aggregator) AddItemDespawn(zoneID string, despawn ItemDespawn) {
	agg.mu.Lock()
	zb := agg.buffers(zoneID)
	if !zb.despawnSeen.Contains(despawn.ItemID) {
		zb.despawnSeen.Add(despawn.ItemID)
		zb.despawns = appendBounded(zb.despawns, despawn, zoneID, EventItemDespawned)
	}
	agg.mu.Unlock()
}

// HasPending reports whether the zone has any buffered events
func (agg *Aggregator) HasPending(zoneID string) bool {
	agg.mu.Lock()
	_, ok := agg.zones[zoneID]
	agg.mu.Unlock()
	return ok
}

// PendingZones lists all zones that currently have buffered events
func (agg *Aggregator) PendingZones() []string {
	agg.mu.Lock()
	zones := make([]string, 0, len(agg.zones))
	for zoneID := range agg.zones {
		zones = append(zones, zoneID)
	}
	agg.mu.Unlock()
	return zones
}

// take atomically removes and returns the zone's buffer set, or nil if the
// zone has nothing pending. Enqueues arriving after take land in a fresh
// buffer set for the next flush.
func (agg *Aggregator) take(zoneID string) *zoneBuffers {
	agg.mu.Lock()
	zb := agg.zones[zoneID]
	delete(agg.zones, zoneID)
	agg.mu.Unlock()
	return zb
}
