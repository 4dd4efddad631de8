package main

import (
	"flag"
	"math/rand"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/xiaonanln/goTimer"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/auth"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/binutil"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/config"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gameutils"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gate"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/netutil"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/opmon"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/party"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage"
)

var (
	args struct {
		configFile      string
		logLevel        string
		runInDaemonMode bool
	}
	service    *syncService
	signalChan = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.Parse()
}

func main() {
	rand.Seed(time.Now().UnixNano())
	parseArgs()

	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	cfg := config.GetServer()
	if cfg.GoMaxProcs > 0 {
		gamelog.Infof("SET GOMAXPROCS = %d", cfg.GoMaxProcs)
		runtime.GOMAXPROCS(cfg.GoMaxProcs)
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	binutil.SetupGameLog("server", logLevel, cfg.LogFile, cfg.LogStderr)

	db, err := storage.Open(config.GetStorage())
	if err != nil {
		gamelog.Fatalf("open storage failed: %s", err)
	}

	resolver, err := auth.NewResolver(config.GetAuth(), db)
	if err != nil {
		gamelog.Fatalf("setup credential verification failed: %s", err)
	}

	service = newSyncService(db)
	gateService := gate.NewGateService(resolver, party.NewBinder(db, cfg.MaxPartySize),
		netutil.PackerByName(cfg.WireFormat), service.commandQueue)
	service.attachGate(gateService)

	binutil.SetupHTTPServer(cfg.Ip, cfg.Port, gateService.WebsocketServer())

	timer.AddTimer(time.Second*5, gateService.PruneAdmissions)
	timer.AddTimer(time.Minute, opmon.Dump)

	setupSignals()
	gameutils.RepeatUntilPanicless(service.run)
}

func setupSignals() {
	gamelog.Infof("Setup signals ...")
	signal.Ignore(syscall.SIGPIPE, syscall.SIGHUP)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			sig := <-signalChan
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				gamelog.Infof("Terminating server ...")
				service.terminating.Store(true)

				service.terminated.Wait()
				gamelog.Infof("Server terminated gracefully.")
				os.Exit(0)
			} else {
				gamelog.Errorf("unexpected signal: %s", sig)
			}
		}
	}()
}
