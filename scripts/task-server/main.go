// Command task-server runs the in-memory task API for local load testing.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wesleyorama2/taskswarm/internal/taskapi/taskapitest"
)

func main() {
	addr := pflag.String("addr", "127.0.0.1:3000", "Address to listen on")
	numericIDs := pflag.Bool("numeric-ids", false, "Return integer task ids from /addTask")
	pflag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	// Use all CPU cores
	runtime.GOMAXPROCS(runtime.NumCPU())

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", *addr), zap.Error(err))
	}

	srv := taskapitest.NewUnstartedServer()
	srv.NumericIDs = *numericIDs
	_ = srv.Listener.Close()
	srv.Listener = ln

	// Configure server for high throughput
	srv.Config.ReadTimeout = 5 * time.Second
	srv.Config.WriteTimeout = 5 * time.Second
	srv.Config.IdleTimeout = 120 * time.Second
	srv.Config.MaxHeaderBytes = 1 << 20
	srv.Config.ReadHeaderTimeout = 2 * time.Second

	srv.Start()
	logger.Info("Task API listening",
		zap.String("url", srv.URL),
		zap.Int("cpus", runtime.NumCPU()),
		zap.Bool("numericIDs", *numericIDs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	srv.Close()
	logger.Info("Task API stopped", zap.Int("tasks", len(srv.TaskIDs())))
}
