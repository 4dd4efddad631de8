package binutil

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/natefinch/lumberjack"
	"golang.org/x/net/websocket"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/gamelog"
)

// SetupHTTPServer starts the HTTP server carrying the gate websocket
// endpoint and go tool pprof
func SetupHTTPServer(ip string, port int, wsServer websocket.Server) {
	setupHTTPServer(ip, port, wsServer, "", "")
}

// SetupHTTPServerTLS is SetupHTTPServer over TLS
func SetupHTTPServerTLS(ip string, port int, wsServer websocket.Server, certFile string, keyFile string) {
	setupHTTPServer(ip, port, wsServer, certFile, keyFile)
}

func setupHTTPServer(ip string, port int, wsServer websocket.Server, certFile string, keyFile string) {
	httpHost := fmt.Sprintf("%s:%d", ip, port)
	gamelog.Infof("http server listening on %s", httpHost)
	gamelog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	gamelog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	gamelog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)
	if keyFile != "" || certFile != "" {
		gamelog.Infof("TLS is enabled on http: key=%s, cert=%s", keyFile, certFile)
	}

	http.Handle("/ws", wsServer)

	go func() {
		if keyFile == "" && certFile == "" {
			http.ListenAndServe(httpHost, nil)
		} else {
			http.ListenAndServeTLS(httpHost, certFile, keyFile, nil)
		}
	}()
}

// SetupGameLog configures the log system of this process
func SetupGameLog(component string, logLevel string, logFile string, logStderr bool) {
	gamelog.SetSource(component)
	gamelog.Infof("Set log level to %s", logLevel)
	gamelog.SetLevel(gamelog.StringToLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		logFileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, // days
			Compress:   true,
		}

		logFileWriter.Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 1 {
		gamelog.SetOutput(outputWriters[0])
	} else {
		gamelog.SetOutput(io.MultiWriter(outputWriters...))
	}
}
