//go:build !windows
// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
)

func Daemonize() *daemon.Context {
	context := new(daemon.Context)
	child, err := context.Reborn()

	if err != nil {
		// daemonize failed
		gamelog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		gamelog.Infof("run in daemon mode")
		os.Exit(0)
		return nil
	} else {
		return context
	}
}
