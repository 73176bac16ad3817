package shared

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux

	echoweb "github.com/trezcool/dailies/apps/web/echo"
	"github.com/trezcool/dailies/core"
	logsvc "github.com/trezcool/dailies/services/logger"
)

// Run serves `app` (daily or dashboard) until an interrupt signal or a server error.
func Run(app core.App) {
	c := NewContainer(app)

	err := c.Invoke(func(
		conf *core.Config,
		logger *logsvc.RollbarLogger,
		dbLoggerParam DBLoggerParam,
		deps *Deps,
		server *echoweb.Server,
	) {
		defer logger.Close()
		defer func() {
			if err := deps.Close(context.Background()); err != nil {
				dbLoggerParam.Logger.Error("Failed to close", err)
			}
		}()

		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("%s app initializing : version %q, engine %q", app, conf.Build, conf.Database.Engine))
		defer logger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		if conf.Server.DebugAddr != "" {
			expvar.NewString("build").Set(conf.Build)
			expvar.NewString("env").Set(conf.Env)
			expvar.NewString("app").Set(string(app))

			go func() {
				if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
					logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
				}
			}()
		}

		// =========================================================================
		// Start App Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			logger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	})
	if err != nil {
		log.Fatalf("starting %s app: %v", app, err)
	}
}
