package zonesync

// Wire event names emitted to zone broadcast groups
const (
	EventEntityUpdate  = "entityUpdate"
	EventCombatAction  = "combatAction"
	EventEntityDied    = "entityDied"
	EventEnemySpawned  = "enemySpawned"
	EventItemsDropped  = "itemsDropped"
	EventItemPickedUp  = "itemPickedUp"
	EventItemDespawned = "itemDespawned"
)

// Death kinds
const (
	DeathKindCharacter = "character"
	DeathKindEnemy     = "enemy"
)

// Position is a 2D world position
type Position struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
}

// EntityUpdate is a partial state change of one entity. Absent optional
// fields mean "unchanged", so they are pointers rather than zero values.
type EntityUpdate struct {
	ID        string   `msgpack:"id" json:"id"`
	X         *float64 `msgpack:"x,omitempty" json:"x,omitempty"`
	Y         *float64 `msgpack:"y,omitempty" json:"y,omitempty"`
	Health    *int     `msgpack:"health,omitempty" json:"health,omitempty"`
	State     string   `msgpack:"state,omitempty" json:"state,omitempty"`
	ClassName string   `msgpack:"className,omitempty" json:"className,omitempty"`
}

// CombatAction is one resolved attack
type CombatAction struct {
	AttackerID string `msgpack:"attackerId" json:"attackerId"`
	TargetID   string `msgpack:"targetId" json:"targetId"`
	Damage     int    `msgpack:"damage" json:"damage"`
	Type       string `msgpack:"type" json:"type"`
}

// Death is the one-shot death notification of an entity
type Death struct {
	EntityID string `msgpack:"entityId" json:"entityId"`
	Kind     string `msgpack:"type" json:"type"`
}

// Spawn is the full record of a newly spawned enemy
type Spawn struct {
	ID        string  `msgpack:"id" json:"id"`
	Name      string  `msgpack:"name" json:"name"`
	SpriteKey string  `msgpack:"spriteKey" json:"spriteKey"`
	X         float64 `msgpack:"x" json:"x"`
	Y         float64 `msgpack:"y" json:"y"`
	Health    int     `msgpack:"health" json:"health"`
	MaxHealth int     `msgpack:"maxHealth" json:"maxHealth"`
	Level     int     `msgpack:"level" json:"level"`
	State     string  `msgpack:"state" json:"state"`
}

// ItemDrop is one item appearing on the ground
type ItemDrop struct {
	ID             string   `msgpack:"id" json:"id"`
	ItemTemplateID string   `msgpack:"itemTemplateId" json:"itemTemplateId"`
	ItemName       string   `msgpack:"itemName" json:"itemName"`
	ItemType       string   `msgpack:"itemType" json:"itemType"`
	SpriteKey      string   `msgpack:"spriteKey" json:"spriteKey"`
	Position       Position `msgpack:"position" json:"position"`
	Quantity       int      `msgpack:"quantity" json:"quantity"`
}

// ItemPickup is the one-shot removal of a ground item that was picked up
type ItemPickup struct {
	ItemID string `msgpack:"itemId" json:"itemId"`
}

// ItemDespawn is the one-shot removal of a ground item that timed out
type ItemDespawn struct {
	ItemID string `msgpack:"itemId" json:"itemId"`
}

// EntityUpdateBatch is the aggregate payload of one entityUpdate message
type EntityUpdateBatch struct {
	Updates []EntityUpdate `msgpack:"updates" json:"updates"`
}

// CombatActionBatch is the aggregate payload of one combatAction message
type CombatActionBatch struct {
	Actions []CombatAction `msgpack:"actions" json:"actions"`
}

// ItemDropBatch is the aggregate payload of one itemsDropped message
type ItemDropBatch struct {
	Items []ItemDrop `msgpack:"items" json:"items"`
}

// Float returns a pointer for an optional float field
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer for an optional int field
func Int(v int) *int {
	return &v
}
