package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notapilot/internal/auth"
	"notapilot/internal/dispatch"
	httpx "notapilot/internal/http"
	"notapilot/internal/live"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (cron trigger, status and admin API)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := live.NewHub(nil)
		d := a.dispatcher(a.runStream(ctx), hub)

		r := httpx.NewRouter(a.cfg, httpx.Deps{
			Runner:    d,
			Runs:      a.runs,
			Jobs:      a.jobs,
			Schedules: a.schedules,
			Templates: a.templates,
			Live:      hub,
			JWT:       auth.NewJWT(a.cfg.AdminJWTSecret),
		})

		interval := a.cfg.PollInterval
		if cmd.Flags().Changed("poll-interval") {
			interval, _ = cmd.Flags().GetDuration("poll-interval")
		}
		if interval > 0 {
			poller := &dispatch.Poller{Runner: d, Interval: interval}
			go poller.Run(ctx)
			log.Printf("in-process dispatch every %s", interval)
		}

		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Printf("listening on %s\n", a.cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}()

		// graceful shutdown
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	},
}
