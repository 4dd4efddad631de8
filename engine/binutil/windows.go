//go:build windows
// +build windows

package binutil

import "github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"

type nopRelease int

func (_ nopRelease) Release() {

}

func Daemonize() nopRelease {
	// Windows can not daemonize
	gamelog.Warnf("can not run in daemon mode in windows, -d ignored")
	return nopRelease(0)
}
