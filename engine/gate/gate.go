package gate

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"golang.org/x/net/websocket"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/auth"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/common"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/netutil"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/opmon"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/party"
)

// admissionTTL bounds how long a handshake verdict stays usable before the
// websocket handler claims it
const admissionTTL = time.Second * 10

type pendingAdmission struct {
	identity *auth.Identity
	deadline time.Time
}

// GateService accepts client connections, verifies their credential before
// acceptance and routes messages between sessions and the sync service.
// It is the transport half of the server: the simulation never touches
// connections directly, it goes through SendToZone / SendToAccount.
type GateService struct {
	resolver *auth.Resolver
	binder   *party.Binder
	packer   netutil.MsgPacker
	commands chan<- interface{}

	proxiesLock     sync.RWMutex
	proxies         map[common.ClientID]*ClientProxy
	accountSessions map[string]map[common.ClientID]*ClientProxy
	zoneMembers     map[string]map[common.ClientID]*ClientProxy

	pendingLock       sync.Mutex
	pendingAdmissions map[string]pendingAdmission

	terminating xnsyncutil.AtomicBool
}

// NewGateService creates the gate. Commands produced by client messages are
// pushed to commands for the sync service to consume on its own goroutine.
func NewGateService(resolver *auth.Resolver, binder *party.Binder, packer netutil.MsgPacker, commands chan<- interface{}) *GateService {
	return &GateService{
		resolver:          resolver,
		binder:            binder,
		packer:            packer,
		commands:          commands,
		proxies:           map[common.ClientID]*ClientProxy{},
		accountSessions:   map[string]map[common.ClientID]*ClientProxy{},
		zoneMembers:       map[string]map[common.ClientID]*ClientProxy{},
		pendingAdmissions: map[string]pendingAdmission{},
	}
}

// WebsocketServer returns the websocket handler for the gate endpoint.
// The Handshake hook runs before the upgrade completes, so a bad credential
// refuses the connection without ever accepting it.
func (gs *GateService) WebsocketServer() websocket.Server {
	return websocket.Server{
		Handshake: gs.checkHandshake,
		Handler:   gs.handleWebSocketConn,
	}
}

func (gs *GateService) checkHandshake(config *websocket.Config, req *http.Request) error {
	op := opmon.StartOperation("gate.admission")
	defer op.Finish(time.Millisecond * 100)

	credential := bearerCredential(req)
	identity, err := gs.resolver.Resolve(credential)
	if err != nil {
		gamelog.Warnf("gate: connection from %s refused: %s", req.RemoteAddr, err)
		return err
	}

	gs.rememberAdmission(credential, identity)
	return nil
}

func (gs *GateService) handleWebSocketConn(ws *websocket.Conn) {
	if gs.terminating.Load() {
		ws.Close()
		return
	}

	ws.PayloadType = websocket.BinaryFrame

	credential := bearerCredential(ws.Request())
	identity := gs.takeAdmission(credential)
	if identity == nil {
		// a concurrent connection reusing the same credential can consume
		// the handshake verdict first; resolve again
		var err error
		identity, err = gs.resolver.Resolve(credential)
		if err != nil {
			gamelog.Warnf("gate: connection from %s refused: %s", ws.Request().RemoteAddr, err)
			ws.Close()
			return
		}
	}

	cp := newClientProxy(newWSWire(ws, gs.packer), gs.packer, identity)
	gs.register(cp)
	cp.serve(gs)
}

// bearerCredential extracts the credential from the upgrade request.
// Returns "" when no credential was presented.
func bearerCredential(req *http.Request) string {
	const prefix = "Bearer "
	header := req.Header.Get("Authorization")
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (gs *GateService) rememberAdmission(credential string, identity *auth.Identity) {
	now := time.Now()
	gs.pendingLock.Lock()
	for cred, pa := range gs.pendingAdmissions {
		if pa.deadline.Before(now) {
			delete(gs.pendingAdmissions, cred)
		}
	}
	gs.pendingAdmissions[credential] = pendingAdmission{identity: identity, deadline: now.Add(admissionTTL)}
	gs.pendingLock.Unlock()
}

func (gs *GateService) takeAdmission(credential string) *auth.Identity {
	gs.pendingLock.Lock()
	defer gs.pendingLock.Unlock()

	pa, ok := gs.pendingAdmissions[credential]
	if !ok {
		return nil
	}
	delete(gs.pendingAdmissions, credential)
	if pa.deadline.Before(time.Now()) {
		return nil
	}
	return pa.identity
}

// PruneAdmissions drops handshake verdicts that were never claimed
func (gs *GateService) PruneAdmissions() {
	now := time.Now()
	gs.pendingLock.Lock()
	for cred, pa := range gs.pendingAdmissions {
		if pa.deadline.Before(now) {
			delete(gs.pendingAdmissions, cred)
		}
	}
	gs.pendingLock.Unlock()
}

func (gs *GateService) register(cp *ClientProxy) {
	accountID := cp.identity.AccountID

	gs.proxiesLock.Lock()
	gs.proxies[cp.clientid] = cp
	sessions := gs.accountSessions[accountID]
	if sessions == nil {
		sessions = map[common.ClientID]*ClientProxy{}
		gs.accountSessions[accountID] = sessions
	}
	sessions[cp.clientid] = cp
	gs.proxiesLock.Unlock()

	cp.setAuthenticated()
	gamelog.Infof("%s connected from %s", cp, cp.wire.RemoteAddr())
}

// onClientProxyClose removes the session from every registry. Safe to call
// more than once.
func (gs *GateService) onClientProxyClose(cp *ClientProxy) {
	gs.proxiesLock.Lock()
	if _, ok := gs.proxies[cp.clientid]; !ok {
		gs.proxiesLock.Unlock()
		return
	}
	delete(gs.proxies, cp.clientid)

	accountID := cp.identity.AccountID
	if sessions := gs.accountSessions[accountID]; sessions != nil {
		delete(sessions, cp.clientid)
		if len(sessions) == 0 {
			delete(gs.accountSessions, accountID)
		}
	}
	for _, zoneID := range cp.Zones() {
		gs.removeZoneMemberLocked(zoneID, cp)
	}
	gs.proxiesLock.Unlock()

	cp.setDisconnected()
	gamelog.Infof("%s removed", cp)
}

func (gs *GateService) removeZoneMemberLocked(zoneID string, cp *ClientProxy) {
	members := gs.zoneMembers[zoneID]
	if members == nil {
		return
	}
	delete(members, cp.clientid)
	if len(members) == 0 {
		delete(gs.zoneMembers, zoneID)
	}
}

// JoinZone adds the session to a zone's broadcast group
func (gs *GateService) JoinZone(cp *ClientProxy, zoneID string) {
	gs.proxiesLock.Lock()
	if _, ok := gs.proxies[cp.clientid]; !ok {
		gs.proxiesLock.Unlock()
		gamelog.Warnf("%s tried to join zone %s after disconnect", cp, zoneID)
		return
	}
	members := gs.zoneMembers[zoneID]
	if members == nil {
		members = map[common.ClientID]*ClientProxy{}
		gs.zoneMembers[zoneID] = members
	}
	members[cp.clientid] = cp
	gs.proxiesLock.Unlock()

	cp.joinZone(zoneID)
	gamelog.Debugf("%s joined zone %s", cp, zoneID)
}

// LeaveZone removes the session from a zone's broadcast group
func (gs *GateService) LeaveZone(cp *ClientProxy, zoneID string) {
	gs.proxiesLock.Lock()
	gs.removeZoneMemberLocked(zoneID, cp)
	gs.proxiesLock.Unlock()

	cp.leaveZone(zoneID)
	gamelog.Debugf("%s left zone %s", cp, zoneID)
}

// SendToZone packs the message once and queues it to every member of the
// zone. A member whose connection is stalled or gone does not affect the
// others; its own writer deals with the fault.
func (gs *GateService) SendToZone(zoneID string, event string, payload interface{}) error {
	data, err := netutil.PackMessage(gs.packer, event, payload)
	if err != nil {
		return errors.Wrapf(err, "pack %s failed", event)
	}

	gs.proxiesLock.RLock()
	members := make([]*ClientProxy, 0, len(gs.zoneMembers[zoneID]))
	for _, cp := range gs.zoneMembers[zoneID] {
		members = append(members, cp)
	}
	gs.proxiesLock.RUnlock()

	for _, cp := range members {
		cp.SendRaw(data)
	}
	return nil
}

// SendToAccount delivers a message to every live session of an identity,
// bypassing zone aggregation. Fire and forget: a miss is logged, never an
// error.
func (gs *GateService) SendToAccount(accountID string, event string, payload interface{}) {
	data, err := netutil.PackMessage(gs.packer, event, payload)
	if err != nil {
		gamelog.Errorf("gate: pack %s for account %s failed: %s", event, accountID, err)
		return
	}

	gs.proxiesLock.RLock()
	sessions := make([]*ClientProxy, 0, len(gs.accountSessions[accountID]))
	for _, cp := range gs.accountSessions[accountID] {
		sessions = append(sessions, cp)
	}
	gs.proxiesLock.RUnlock()

	if len(sessions) == 0 {
		gamelog.Debugf("gate: direct delivery of %s missed, account %s has no live session", event, accountID)
		return
	}
	for _, cp := range sessions {
		cp.SendRaw(data)
	}
}

// NumSessions returns the number of live sessions
func (gs *GateService) NumSessions() int {
	gs.proxiesLock.RLock()
	defer gs.proxiesLock.RUnlock()
	return len(gs.proxies)
}

// Terminate closes every live session and stops accepting new ones
func (gs *GateService) Terminate() {
	gs.terminating.Store(true)

	gs.proxiesLock.RLock()
	proxies := make([]*ClientProxy, 0, len(gs.proxies))
	for _, cp := range gs.proxies {
		proxies = append(proxies, cp)
	}
	gs.proxiesLock.RUnlock()

	for _, cp := range proxies {
		cp.Close()
	}
	gamelog.Infof("gate: terminated, %d sessions closed", len(proxies))
}
