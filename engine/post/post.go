package post

import (
	"sync"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gameutils"
)

// Callback is the type of functions to be posted
type Callback func()

var (
	lock      sync.Mutex
	callbacks []Callback
)

// Post queues a callback to be executed by the main server routine after the
// current batch of work. Safe to call from any goroutine.
func Post(f Callback) {
	lock.Lock()
	callbacks = append(callbacks, f)
	lock.Unlock()
}

// Tick runs all posted callbacks. Called by the main server routine only.
func Tick() {
	for {
		lock.Lock()
		if len(callbacks) == 0 {
			lock.Unlock()
			break
		}
		batch := callbacks
		callbacks = make([]Callback, 0, len(batch))
		lock.Unlock()

		for _, f := range batch {
			gameutils.RunPanicless(f)
		}
	}
}
