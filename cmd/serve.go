package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/presence-station/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API and the climate controller",
	Long: `Start the station web API together with the environmental control loop.
Kiosks open capture sessions over the API, submit frames and confirm captures.
The fan and light are driven every CONTROL_INTERVAL from the simulated board.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Duration("session-max-age", 10*time.Minute, "Close capture sessions idle for longer than this")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{loadGallery: true})
	if err != nil {
		return err
	}
	defer a.Close()

	webCfg := a.cfg.Web
	if port := mustGetInt(cmd, "port"); port > 0 {
		webCfg.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		webCfg.Host = host
	}
	maxAge, err := cmd.Flags().GetDuration("session-max-age")
	if err != nil {
		return err
	}

	server := web.NewServer(webCfg, web.Deps{
		Station:  a.station,
		Registry: a.registry,
		Log:      a.log,
		Gallery:  a.store,
		Climate:  a.climate,
		Commands: a.commands,
		Events:   a.events,
		Logger:   a.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.buzzer.Run(gctx)
		return nil
	})
	g.Go(func() error { return a.climate.Run(gctx) })
	g.Go(func() error { return a.station.RunJanitor(gctx, time.Minute, maxAge) })
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	fmt.Printf("Presence Station listening on http://%s:%d\n", webCfg.Host, webCfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		a.logger.Error("station stopped", zap.Error(err))
		return err
	}
	return nil
}
