package gate

import (
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gameutils"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/netutil"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/party"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage"
)

// client -> server events
const (
	ClientEventSelectParty = "selectParty"
	ClientEventEnterZone   = "enterZone"
	ClientEventLeaveZone   = "leaveZone"
	ClientEventMove        = "move"
)

// server -> client acknowledgements
const (
	EventPartySelected = "partySelected"
	EventZoneEntered   = "zoneEntered"
	EventZoneLeft      = "zoneLeft"
)

type selectPartyRequest struct {
	CharacterIDs []string `msgpack:"characterIds" json:"characterIds"`
}

type partySelectedAck struct {
	OK         bool                 `msgpack:"ok" json:"ok"`
	Reason     string               `msgpack:"reason,omitempty" json:"reason,omitempty"`
	Characters []*storage.Character `msgpack:"characters,omitempty" json:"characters,omitempty"`
}

type zoneRequest struct {
	ZoneID string `msgpack:"zoneId" json:"zoneId"`
}

type zoneAck struct {
	ZoneID string `msgpack:"zoneId" json:"zoneId"`
}

type moveRequest struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
}

// MoveCommand is a client movement intent handed to the sync service's
// command queue. The gate never touches simulation state itself.
type MoveCommand struct {
	Session *ClientProxy
	X, Y    float64
}

// handleClientMessage dispatches one inbound message. A panic in a handler
// kills the message, not the connection.
func (gs *GateService) handleClientMessage(cp *ClientProxy, msg netutil.Message) {
	gameutils.RunPanicless(func() {
		switch msg.Event {
		case ClientEventSelectParty:
			gs.handleSelectParty(cp, msg)
		case ClientEventEnterZone:
			gs.handleEnterZone(cp, msg)
		case ClientEventLeaveZone:
			gs.handleLeaveZone(cp, msg)
		case ClientEventMove:
			gs.handleMove(cp, msg)
		default:
			gamelog.Warnf("%s sent unknown event %q", cp, msg.Event)
		}
	})
}

func (gs *GateService) handleSelectParty(cp *ClientProxy, msg netutil.Message) {
	var req selectPartyRequest
	if err := netutil.UnpackPayload(gs.packer, msg, &req); err != nil {
		gamelog.Warnf("%s sent malformed %s: %s", cp, msg.Event, err)
		return
	}

	if cp.State() == StateConnecting {
		cp.Send(EventPartySelected, &partySelectedAck{Reason: party.ReasonNotAuthenticated})
		return
	}

	chars, err := gs.binder.Bind(cp.identity.AccountID, req.CharacterIDs)
	if err != nil {
		reason := party.ReasonOf(err)
		if reason == "" || reason == party.ReasonLookupFailed {
			gamelog.Errorf("%s party bind failed: %s", cp, err)
			reason = party.ReasonLookupFailed
		}
		// rejection leaves any previously bound working set untouched
		cp.Send(EventPartySelected, &partySelectedAck{OK: false, Reason: reason})
		return
	}

	cp.setParty(chars)
	cp.Send(EventPartySelected, &partySelectedAck{OK: true, Characters: chars})
	gamelog.Infof("%s bound party of %d", cp, len(chars))
}

func (gs *GateService) handleEnterZone(cp *ClientProxy, msg netutil.Message) {
	var req zoneRequest
	if err := netutil.UnpackPayload(gs.packer, msg, &req); err != nil {
		gamelog.Warnf("%s sent malformed %s: %s", cp, msg.Event, err)
		return
	}
	if req.ZoneID == "" {
		gamelog.Warnf("%s tried to enter empty zone id", cp)
		return
	}
	if cp.State() != StatePartyBound {
		gamelog.Warnf("%s tried to enter zone %s without a bound party", cp, req.ZoneID)
		return
	}

	// one active zone per session
	for _, zoneID := range cp.Zones() {
		gs.LeaveZone(cp, zoneID)
	}
	gs.JoinZone(cp, req.ZoneID)
	cp.Send(EventZoneEntered, &zoneAck{ZoneID: req.ZoneID})
}

func (gs *GateService) handleLeaveZone(cp *ClientProxy, msg netutil.Message) {
	for _, zoneID := range cp.Zones() {
		gs.LeaveZone(cp, zoneID)
		cp.Send(EventZoneLeft, &zoneAck{ZoneID: zoneID})
	}
}

func (gs *GateService) handleMove(cp *ClientProxy, msg netutil.Message) {
	if cp.State() != StatePartyBound {
		return
	}

	var req moveRequest
	if err := netutil.UnpackPayload(gs.packer, msg, &req); err != nil {
		gamelog.Warnf("%s sent malformed %s: %s", cp, msg.Event, err)
		return
	}

	select {
	case gs.commands <- &MoveCommand{Session: cp, X: req.X, Y: req.Y}:
	default:
		gamelog.Warnf("gate: command queue full, dropping move from %s", cp)
	}
}
