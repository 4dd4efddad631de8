package gameutils

import "github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"

// RunPanicless calls a function and converts a panic to a logged error
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		if err := recover(); err != nil {
			gamelog.TraceError("%v panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// RepeatUntilPanicless runs the function again and again until it returns without panicking
func RepeatUntilPanicless(f func()) {
	for !RunPanicless(f) {
	}
}
