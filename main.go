/*
This is an example of application that draws the testbed
frame graph described in config.toml
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/testbed"
)

func main() {
	configPath := flag.String("config", "config.toml", "path of the engine configuration")
	watch := flag.Bool("watch", true, "reload the configuration when the file changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("loading configuration: %s", err)
	}
	app := engine.NewApplicationConfig(cfg, *configPath)
	if !*watch {
		app.ConfigPath = ""
	}

	tb := testbed.NewTestGame(app)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("creating engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("initializing engine: %s", err)
	}

	// capture sigterm and other system calls to stop the loop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	runErr := e.Run(ctx)
	stop()
	stats := e.Stats()
	core.LogInfo("frames: %d presented, %d dropped, %d resizes", stats.Presented, stats.Dropped, stats.Resizes)

	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogError("engine stopped: %s", runErr)
		os.Exit(1)
	}
}
