package gate

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"golang.org/x/net/websocket"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/auth"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/common"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gameutils"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/netutil"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage"
)

// SessionState is the lifecycle state of one client session. Transitions
// are performed only by the gate and the party binder path.
type SessionState int

const (
	// StateConnecting is the initial state, before the session is registered
	StateConnecting SessionState = iota
	// StateAuthenticated means the session carries a resolved identity
	StateAuthenticated
	// StatePartyBound means a working set of characters has been bound
	StatePartyBound
	// StateDisconnected is terminal
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StatePartyBound:
		return "partyBound"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// wire is the framed connection under a client proxy. Production sessions
// run over websocket; tests substitute an in-memory wire.
type wire interface {
	ReadMsg() (netutil.Message, error)
	WriteMsg(data []byte) error
	Close() error
	RemoteAddr() string
}

type wsWire struct {
	ws     *websocket.Conn
	packer netutil.MsgPacker
}

func newWSWire(ws *websocket.Conn, packer netutil.MsgPacker) *wsWire {
	return &wsWire{ws: ws, packer: packer}
}

func (w *wsWire) ReadMsg() (netutil.Message, error) {
	var data []byte
	if err := websocket.Message.Receive(w.ws, &data); err != nil {
		return netutil.Message{}, err
	}
	return netutil.UnpackMessage(w.packer, data)
}

func (w *wsWire) WriteMsg(data []byte) error {
	return websocket.Message.Send(w.ws, data)
}

func (w *wsWire) Close() error {
	return w.ws.Close()
}

func (w *wsWire) RemoteAddr() string {
	if req := w.ws.Request(); req != nil {
		return req.RemoteAddr
	}
	return w.ws.RemoteAddr().String()
}

// ClientProxy is one live client connection with its session state
type ClientProxy struct {
	wire     wire
	packer   netutil.MsgPacker
	clientid common.ClientID
	identity *auth.Identity

	mu    sync.RWMutex
	state SessionState
	party []*storage.Character
	zones common.StringSet

	sendQueue *xnsyncutil.SyncQueue
	closeOnce sync.Once
}

func newClientProxy(w wire, packer netutil.MsgPacker, identity *auth.Identity) *ClientProxy {
	return &ClientProxy{
		wire:      w,
		packer:    packer,
		clientid:  common.GenClientID(),
		identity:  identity,
		state:     StateConnecting,
		zones:     common.StringSet{},
		sendQueue: xnsyncutil.NewSyncQueue(),
	}
}

func (cp *ClientProxy) String() string {
	return fmt.Sprintf("ClientProxy<%s@%s>", cp.clientid, cp.identity.AccountID)
}

// ClientID returns the unique id of this connection
func (cp *ClientProxy) ClientID() common.ClientID {
	return cp.clientid
}

// Identity returns the identity snapshot attached at admission
func (cp *ClientProxy) Identity() *auth.Identity {
	return cp.identity
}

// State returns the current session state
func (cp *ClientProxy) State() SessionState {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.state
}

// Party returns the session's bound working set
func (cp *ClientProxy) Party() []*storage.Character {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return append([]*storage.Character(nil), cp.party...)
}

// Zones returns the zones this session is currently joined to
func (cp *ClientProxy) Zones() []string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.zones.ToList()
}

func (cp *ClientProxy) setAuthenticated() {
	cp.mu.Lock()
	if cp.state == StateConnecting {
		cp.state = StateAuthenticated
	}
	cp.mu.Unlock()
}

// setParty replaces the whole working set; bind is replace, not merge
func (cp *ClientProxy) setParty(chars []*storage.Character) {
	cp.mu.Lock()
	cp.party = chars
	if cp.state == StateAuthenticated {
		cp.state = StatePartyBound
	}
	cp.mu.Unlock()
}

func (cp *ClientProxy) setDisconnected() {
	cp.mu.Lock()
	cp.state = StateDisconnected
	cp.mu.Unlock()
}

func (cp *ClientProxy) joinZone(zoneID string) {
	cp.mu.Lock()
	cp.zones.Add(zoneID)
	cp.mu.Unlock()
}

func (cp *ClientProxy) leaveZone(zoneID string) {
	cp.mu.Lock()
	cp.zones.Remove(zoneID)
	cp.mu.Unlock()
}

// Send packs and queues one message for this session. Never blocks on the
// transport.
func (cp *ClientProxy) Send(event string, payload interface{}) error {
	data, err := netutil.PackMessage(cp.packer, event, payload)
	if err != nil {
		return errors.Wrapf(err, "pack %s failed", event)
	}
	cp.SendRaw(data)
	return nil
}

// SendRaw queues pre-packed envelope bytes. Messages to a disconnected
// session are dropped silently.
func (cp *ClientProxy) SendRaw(data []byte) {
	if cp.State() == StateDisconnected {
		return
	}
	cp.sendQueue.Push(data)
}

// Close shuts the session down. Idempotent.
func (cp *ClientProxy) Close() {
	cp.closeOnce.Do(func() {
		cp.setDisconnected()
		cp.sendQueue.Close()
		cp.wire.Close()
	})
}

// serve runs the read loop until the connection drops, then deregisters
func (cp *ClientProxy) serve(gs *GateService) {
	defer func() {
		cp.Close()
		gs.onClientProxyClose(cp)

		if err := recover(); err != nil {
			gamelog.TraceError("%s read loop panic: %v", cp, err)
		} else {
			gamelog.Debugf("%s disconnected", cp)
		}
	}()

	go cp.sendRoutine()

	for {
		msg, err := cp.wire.ReadMsg()
		if err != nil {
			break
		}
		gs.handleClientMessage(cp, msg)
	}
}

func (cp *ClientProxy) sendRoutine() {
	gameutils.RunPanicless(func() {
		for {
			item := cp.sendQueue.Pop()
			if item == nil {
				// queue closed
				break
			}
			if err := cp.wire.WriteMsg(item.([]byte)); err != nil {
				gamelog.Debugf("%s write failed: %s", cp, err)
				break
			}
		}
		cp.wire.Close()
	})
}
