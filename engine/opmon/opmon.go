package opmon

import (
	"sort"
	"sync"
	"time"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
)

var (
	operationAllocPool = sync.Pool{
		New: func() interface{} {
			return &Operation{}
		},
	}

	monitor = newMonitor()
)

type opInfo struct {
	count         uint64
	totalDuration time.Duration
	maxDuration   time.Duration
}

type opMonitor struct {
	sync.Mutex
	opInfos map[string]*opInfo
}

func newMonitor() *opMonitor {
	return &opMonitor{
		opInfos: map[string]*opInfo{},
	}
}

func (m *opMonitor) record(opname string, duration time.Duration) {
	m.Lock()
	info := m.opInfos[opname]
	if info == nil {
		info = &opInfo{}
		m.opInfos[opname] = info
	}
	info.count++
	info.totalDuration += duration
	if duration > info.maxDuration {
		info.maxDuration = duration
	}
	m.Unlock()
}

func (m *opMonitor) dump() {
	m.Lock()
	opInfos := m.opInfos
	m.opInfos = map[string]*opInfo{}
	m.Unlock()

	names := make([]string, 0, len(opInfos))
	for name := range opInfos {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := opInfos[name]
		gamelog.Infof("opmon: %-32s count=%-8d avg=%-12s max=%-12s", name,
			info.count, info.totalDuration/time.Duration(info.count), info.maxDuration)
	}
}

// Dump logs all recorded operation stats and resets the counters
func Dump() {
	monitor.dump()
}

// Operation is one timed operation
type Operation struct {
	name      string
	startTime time.Time
}

// StartOperation starts timing an operation with the specified name
func StartOperation(operationName string) *Operation {
	op := operationAllocPool.Get().(*Operation)
	op.name = operationName
	op.startTime = time.Now()
	return op
}

// Finish records the operation duration, warning if it took longer than warnThreshold
func (op *Operation) Finish(warnThreshold time.Duration) {
	takeTime := time.Since(op.startTime)
	monitor.record(op.name, takeTime)
	if takeTime >= warnThreshold {
		gamelog.Warnf("opmon: operation %s took %s (warn threshold %s)", op.name, takeTime, warnThreshold)
	}
	operationAllocPool.Put(op)
}
