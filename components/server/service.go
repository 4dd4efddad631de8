package main

import (
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/goTimer"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/config"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gameutils"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gate"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/post"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/zonesync"
)

const commandQueueSize = 1024

// syncService owns the simulation goroutine. All client commands and all
// tick work run here; the gate's goroutines only touch the aggregator
// through the dispatcher and command queue.
type syncService struct {
	db         storage.Backend
	agg        *zonesync.Aggregator
	dispatcher *zonesync.Dispatcher
	gate       *gate.GateService

	commandQueue chan interface{}
	terminating  xnsyncutil.AtomicBool
	terminated   *xnsyncutil.OneTimeCond
}

func newSyncService(db storage.Backend) *syncService {
	agg := zonesync.NewAggregator()
	return &syncService{
		db:           db,
		agg:          agg,
		dispatcher:   zonesync.NewDispatcher(agg),
		commandQueue: make(chan interface{}, commandQueueSize),
		terminated:   xnsyncutil.NewOneTimeCond(),
	}
}

func (ss *syncService) attachGate(gs *gate.GateService) {
	ss.gate = gs
	ss.dispatcher.AttachBroadcaster(gs)
}

// run is the main loop: commands between ticks, flush on the tick
func (ss *syncService) run() {
	cfg := config.GetServer()
	gamelog.Infof("server config: \n%s", config.DumpPretty(cfg))

	ticker := time.Tick(cfg.TickInterval)
	for {
		select {
		case cmd := <-ss.commandQueue:
			ss.handleCommand(cmd)
		case <-ticker:
			if ss.terminating.Load() {
				ss.doTerminate()
			}

			timer.Tick()
			ss.dispatcher.FlushPending()
		}

		post.Tick()
	}
}

func (ss *syncService) handleCommand(cmd interface{}) {
	gameutils.RunPanicless(func() {
		switch c := cmd.(type) {
		case *gate.MoveCommand:
			ss.handleMove(c)
		default:
			gamelog.TraceError("unknown command: %T", cmd)
		}
	})
}

// handleMove turns a client movement intent into per-zone entity updates
// for the party's characters. Deltas ride the next tick's flush.
func (ss *syncService) handleMove(c *gate.MoveCommand) {
	party := c.Session.Party()
	zones := c.Session.Zones()
	if len(party) == 0 || len(zones) == 0 {
		return
	}

	lead := party[0]
	for _, zoneID := range zones {
		ss.agg.AddEntityUpdate(zoneID, zonesync.EntityUpdate{
			ID: lead.ID,
			X:  zonesync.Float(c.X),
			Y:  zonesync.Float(c.Y),
		})
	}
}

func (ss *syncService) doTerminate() {
	// drain posts, deliver what is still queued, then drop the sessions
	post.Tick()
	ss.dispatcher.FlushPending()
	ss.gate.Terminate()
	ss.db.Close()

	gamelog.Infof("Sync service terminated.")
	ss.terminated.Signal()

	for {
		time.Sleep(time.Second)
	}
}
