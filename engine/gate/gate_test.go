package gate

import (
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/net/websocket"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/auth"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/config"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/netutil"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/party"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/backend/memstore"
	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

const testSecret = "gate-test-secret"

type fakeWire struct {
	packer netutil.MsgPacker
	in     chan netutil.Message

	mu     sync.Mutex
	sent   []netutil.Message
	closed bool
}

func newFakeWire(packer netutil.MsgPacker) *fakeWire {
	return &fakeWire{packer: packer, in: make(chan netutil.Message, 16)}
}

func (w *fakeWire) ReadMsg() (netutil.Message, error) {
	msg, ok := <-w.in
	if !ok {
		return netutil.Message{}, io.EOF
	}
	return msg, nil
}

func (w *fakeWire) WriteMsg(data []byte) error {
	msg, err := netutil.UnpackMessage(w.packer, data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.sent = append(w.sent, msg)
	w.mu.Unlock()
	return nil
}

func (w *fakeWire) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.in)
	}
	return nil
}

func (w *fakeWire) RemoteAddr() string {
	return "fake:0"
}

func (w *fakeWire) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := w.packer.PackMsg(payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.in <- netutil.Message{Event: event, Data: data}
}

func (w *fakeWire) messages() []netutil.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]netutil.Message(nil), w.sent...)
}

func (w *fakeWire) byEvent(event string) []netutil.Message {
	var out []netutil.Message
	for _, m := range w.messages() {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// waitEvent polls for the n-th message of an event, since delivery runs on
// the proxy's send goroutine
func (w *fakeWire) waitEvent(t *testing.T, event string, n int) netutil.Message {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if msgs := w.byEvent(event); len(msgs) >= n {
			return msgs[n-1]
		}
		time.Sleep(time.Millisecond * 5)
	}
	t.Fatalf("timed out waiting for %s message #%d, got %v", event, n, w.messages())
	return netutil.Message{}
}

func newTestGate(t *testing.T) (*GateService, chan interface{}) {
	t.Helper()

	db := memstore.OpenMemStore()
	db.PutAccount(&storagetypes.Account{ID: "acc1", Username: "alice"})
	db.PutAccount(&storagetypes.Account{ID: "acc2", Username: "bob"})
	db.PutCharacter(&storagetypes.Character{ID: "c1", AccountID: "acc1", Name: "Knight"})
	db.PutCharacter(&storagetypes.Character{ID: "c2", AccountID: "acc1", Name: "Mage"})
	db.PutCharacter(&storagetypes.Character{ID: "other1", AccountID: "acc2", Name: "Rogue"})

	resolver, err := auth.NewResolver(&config.AuthConfig{HMACSecret: testSecret, Issuer: "idlemmo"}, db)
	if err != nil {
		t.Fatal(err)
	}

	commands := make(chan interface{}, 16)
	gs := NewGateService(resolver, party.NewBinder(db, 3), netutil.MessagePackMsgPacker{}, commands)
	return gs, commands
}

// connect registers a session the way handleWebSocketConn does, over a fake
// wire, and runs its read loop
func connect(t *testing.T, gs *GateService, accountID string) (*ClientProxy, *fakeWire) {
	t.Helper()

	w := newFakeWire(gs.packer)
	cp := newClientProxy(w, gs.packer, &auth.Identity{AccountID: accountID})
	gs.register(cp)
	go cp.serve(gs)
	return cp, w
}

func bindParty(t *testing.T, w *fakeWire, ids ...string) {
	t.Helper()

	seen := len(w.byEvent(EventPartySelected))
	w.push(t, ClientEventSelectParty, &selectPartyRequest{CharacterIDs: ids})
	msg := w.waitEvent(t, EventPartySelected, seen+1)
	var ack partySelectedAck
	if err := netutil.UnpackPayload(w.packer, msg, &ack); err != nil {
		t.Fatal(err)
	}
	if !ack.OK {
		t.Fatalf("party selection rejected: %s", ack.Reason)
	}
}

func signCredential(t *testing.T, accountID string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": accountID,
		"iss": "idlemmo",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHandshakeRefusesMissingCredential(t *testing.T) {
	gs, _ := newTestGate(t)

	req := httptest.NewRequest("GET", "/ws", nil)
	if err := gs.checkHandshake(&websocket.Config{}, req); err == nil {
		t.Fatal("handshake without credential was accepted")
	}
	if gs.NumSessions() != 0 {
		t.Errorf("refused connection left %d sessions registered", gs.NumSessions())
	}
}

func TestHandshakeRefusesBadCredential(t *testing.T) {
	gs, _ := newTestGate(t)

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	if err := gs.checkHandshake(&websocket.Config{}, req); err == nil {
		t.Fatal("handshake with garbage credential was accepted")
	}
}

func TestHandshakeAdmitsValidCredential(t *testing.T) {
	gs, _ := newTestGate(t)
	cred := signCredential(t, "acc1")

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+cred)
	if err := gs.checkHandshake(&websocket.Config{}, req); err != nil {
		t.Fatal(err)
	}

	identity := gs.takeAdmission(cred)
	if identity == nil || identity.AccountID != "acc1" {
		t.Fatalf("admission verdict = %v", identity)
	}
	if gs.takeAdmission(cred) != nil {
		t.Errorf("admission verdict claimed twice")
	}
}

func TestSelectPartyBindsWorkingSet(t *testing.T) {
	gs, _ := newTestGate(t)
	cp, w := connect(t, gs, "acc1")

	w.push(t, ClientEventSelectParty, &selectPartyRequest{CharacterIDs: []string{"c2", "c1"}})
	msg := w.waitEvent(t, EventPartySelected, 1)

	var ack partySelectedAck
	if err := netutil.UnpackPayload(w.packer, msg, &ack); err != nil {
		t.Fatal(err)
	}
	if !ack.OK || len(ack.Characters) != 2 {
		t.Fatalf("ack = %+v", ack)
	}
	if ack.Characters[0].ID != "c2" || ack.Characters[1].ID != "c1" {
		t.Errorf("ack order = %s, %s", ack.Characters[0].ID, ack.Characters[1].ID)
	}
	if cp.State() != StatePartyBound {
		t.Errorf("session state = %s, want %s", cp.State(), StatePartyBound)
	}
	if p := cp.Party(); len(p) != 2 || p[0].ID != "c2" {
		t.Errorf("bound party = %+v", p)
	}
}

func TestSelectPartyRejectionKeepsPriorSet(t *testing.T) {
	gs, _ := newTestGate(t)
	cp, w := connect(t, gs, "acc1")
	bindParty(t, w, "c1")

	w.push(t, ClientEventSelectParty, &selectPartyRequest{CharacterIDs: []string{"c2", "other1"}})
	msg := w.waitEvent(t, EventPartySelected, 2)

	var ack partySelectedAck
	if err := netutil.UnpackPayload(w.packer, msg, &ack); err != nil {
		t.Fatal(err)
	}
	if ack.OK || ack.Reason != party.ReasonCharacterNotOwned {
		t.Fatalf("ack = %+v", ack)
	}
	if p := cp.Party(); len(p) != 1 || p[0].ID != "c1" {
		t.Errorf("rejection replaced the working set: %+v", p)
	}
	if cp.State() != StatePartyBound {
		t.Errorf("session state = %s after rejection", cp.State())
	}
}

func TestEnterZoneRequiresBoundParty(t *testing.T) {
	gs, _ := newTestGate(t)
	cp, w := connect(t, gs, "acc1")

	w.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z1"})
	// the next ack proves the zone request above was already processed
	bindParty(t, w, "c1")

	if len(w.byEvent(EventZoneEntered)) != 0 {
		t.Errorf("zone entry acknowledged without a bound party")
	}
	if len(cp.Zones()) != 0 {
		t.Errorf("session joined zones %v without a bound party", cp.Zones())
	}
}

func TestZoneBroadcastReachesOnlyMembers(t *testing.T) {
	gs, _ := newTestGate(t)
	_, w1 := connect(t, gs, "acc1")
	_, w2 := connect(t, gs, "acc2")

	bindParty(t, w1, "c1")
	bindParty(t, w2, "other1")
	w1.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z1"})
	w2.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z2"})
	w1.waitEvent(t, EventZoneEntered, 1)
	w2.waitEvent(t, EventZoneEntered, 1)

	if err := gs.SendToZone("z1", "entityUpdate", map[string]string{"id": "e1"}); err != nil {
		t.Fatal(err)
	}
	w1.waitEvent(t, "entityUpdate", 1)

	if len(w2.byEvent("entityUpdate")) != 0 {
		t.Errorf("zone z1 broadcast leaked into z2")
	}
}

func TestEnterZoneReplacesPreviousZone(t *testing.T) {
	gs, _ := newTestGate(t)
	cp, w := connect(t, gs, "acc1")
	bindParty(t, w, "c1")

	w.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z1"})
	w.waitEvent(t, EventZoneEntered, 1)
	w.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z2"})
	w.waitEvent(t, EventZoneEntered, 2)

	zones := cp.Zones()
	if len(zones) != 1 || zones[0] != "z2" {
		t.Errorf("session zones = %v, want [z2]", zones)
	}

	gs.SendToZone("z1", "entityUpdate", map[string]string{"id": "e1"})
	gs.SendToZone("z2", "entityUpdate", map[string]string{"id": "e2"})
	msg := w.waitEvent(t, "entityUpdate", 1)

	var payload map[string]string
	if err := netutil.UnpackPayload(w.packer, msg, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["id"] != "e2" {
		t.Errorf("received broadcast from left zone: %v", payload)
	}
}

func TestMoveProducesCommand(t *testing.T) {
	gs, commands := newTestGate(t)
	cp, w := connect(t, gs, "acc1")
	bindParty(t, w, "c1")
	w.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z1"})
	w.waitEvent(t, EventZoneEntered, 1)

	w.push(t, ClientEventMove, &moveRequest{X: 12, Y: 34})

	select {
	case cmd := <-commands:
		move, ok := cmd.(*MoveCommand)
		if !ok {
			t.Fatalf("command = %T", cmd)
		}
		if move.Session != cp || move.X != 12 || move.Y != 34 {
			t.Errorf("move command = %+v", move)
		}
	case <-time.After(time.Second):
		t.Fatal("move produced no command")
	}
}

func TestMoveIgnoredWithoutParty(t *testing.T) {
	gs, commands := newTestGate(t)
	_, w := connect(t, gs, "acc1")

	w.push(t, ClientEventMove, &moveRequest{X: 1, Y: 2})
	bindParty(t, w, "c1")

	select {
	case cmd := <-commands:
		t.Fatalf("unbound session produced command %+v", cmd)
	default:
	}
}

func TestSendToAccountReachesAllSessions(t *testing.T) {
	gs, _ := newTestGate(t)
	_, w1 := connect(t, gs, "acc1")
	_, w2 := connect(t, gs, "acc1")
	_, other := connect(t, gs, "acc2")

	gs.SendToAccount("acc1", "inventoryUpdate", map[string]int{"gold": 5})
	w1.waitEvent(t, "inventoryUpdate", 1)
	w2.waitEvent(t, "inventoryUpdate", 1)

	if len(other.byEvent("inventoryUpdate")) != 0 {
		t.Errorf("direct delivery leaked to another account")
	}

	// a miss is not an error
	gs.SendToAccount("ghost", "inventoryUpdate", map[string]int{"gold": 5})
}

func TestDisconnectRemovesSessionEverywhere(t *testing.T) {
	gs, _ := newTestGate(t)
	cp, w := connect(t, gs, "acc1")
	bindParty(t, w, "c1")
	w.push(t, ClientEventEnterZone, &zoneRequest{ZoneID: "z1"})
	w.waitEvent(t, EventZoneEntered, 1)

	w.Close()

	deadline := time.Now().Add(time.Second)
	for gs.NumSessions() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 5)
	}
	if gs.NumSessions() != 0 {
		t.Fatal("session still registered after disconnect")
	}
	if cp.State() != StateDisconnected {
		t.Errorf("session state = %s, want %s", cp.State(), StateDisconnected)
	}

	gs.proxiesLock.RLock()
	zoneCount := len(gs.zoneMembers)
	accountCount := len(gs.accountSessions)
	gs.proxiesLock.RUnlock()
	if zoneCount != 0 {
		t.Errorf("%d zone groups still hold the session", zoneCount)
	}
	if accountCount != 0 {
		t.Errorf("%d account entries still hold the session", accountCount)
	}

	// removal is idempotent
	gs.onClientProxyClose(cp)
}

func TestUnknownEventIsIgnored(t *testing.T) {
	gs, _ := newTestGate(t)
	cp, w := connect(t, gs, "acc1")

	w.push(t, "teleportHome", map[string]string{})
	bindParty(t, w, "c1")

	if cp.State() != StatePartyBound {
		t.Errorf("unknown event broke the session: state = %s", cp.State())
	}
}
