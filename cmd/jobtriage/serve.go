package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobtriage/internal/fetch"
	"github.com/jonathan/jobtriage/internal/mail"
	"github.com/jonathan/jobtriage/internal/monitor"
	"github.com/jonathan/jobtriage/internal/seen"
	"github.com/jonathan/jobtriage/internal/server"
	"github.com/jonathan/jobtriage/internal/types"
)

var (
	servePort       int
	serveNoMonitors bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the approval API and the message monitors",
	Long: `Start the HTTP approval API. When IMAP or Discord credentials are configured,
the mail and chat monitors run alongside it and feed accepted job descriptions
through the pipeline into the approval queue.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PORT or 3001)")
	serveCmd.Flags().BoolVar(&serveNoMonitors, "no-monitors", false, "Serve the API only; do not watch mail or chat")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if servePort > 0 {
		rt.cfg.Port = servePort
	}

	var render fetch.RenderFunc
	if rt.cfg.UseBrowser {
		render = fetch.HeadlessRenderer(fetch.DefaultBrowserTimeout, rt.logger)
	}
	srv, err := server.New(server.Config{Port: rt.cfg.Port, Logger: rt.logger}, server.Deps{
		Queue:    rt.queue,
		Pipeline: rt.pipeline,
		Fetcher:  fetch.NewJobFetcher(fetch.DefaultOptions(), render, rt.logger),
	})
	if err != nil {
		return err
	}

	tasks := []func(context.Context) error{srv.Start}
	if !serveNoMonitors {
		monitors, err := rt.monitors()
		if err != nil {
			return err
		}
		tasks = append(tasks, monitors...)
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task(gCtx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// monitors builds the Run functions of every configured monitor. Both share
// one seen database.
func (rt *runtime) monitors() ([]func(context.Context) error, error) {
	if !rt.cfg.MailEnabled() && rt.discord == nil {
		rt.logger.Info("no mail or chat credentials, monitors disabled")
		return nil, nil
	}

	store, err := seen.Open(rt.cfg.SeenDBPath)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() { _ = store.Close() })

	var runs []func(context.Context) error
	if rt.cfg.MailEnabled() {
		inbox := mail.NewIMAPFetcher(mail.IMAPConfig{
			Host:     rt.cfg.IMAP.Host,
			Port:     rt.cfg.IMAP.Port,
			User:     rt.cfg.IMAP.User,
			Password: rt.cfg.IMAP.Password,
			Mailbox:  rt.cfg.IMAP.Mailbox,
		}, rt.logger)
		runs = append(runs, monitor.NewMailMonitor(inbox, store, rt.handleMessage, rt.logger).Run)
	}
	if rt.discord != nil {
		// messages posted before startup are history, not new JDs
		runs = append(runs, monitor.NewChatMonitor(rt.discord, store, rt.handleMessage, time.Now(), rt.logger).Run)
	}
	return runs, nil
}

// handleMessage runs one monitored message through the pipeline.
func (rt *runtime) handleMessage(ctx context.Context, msg types.RawMessage) error {
	out, err := rt.pipeline.Process(ctx, msg)
	if err != nil {
		return err
	}
	switch {
	case out.Skipped && out.Verdict != nil:
		rt.logger.Info("message skipped",
			slog.String("source", string(msg.Source)),
			slog.String("rule", out.Verdict.Rule),
			slog.String("reason", out.Verdict.Reason),
		)
	case out.Queued && out.Submission != nil:
		rt.logger.Info("submission queued",
			slog.String("id", out.Submission.ID),
			slog.String("role", out.Submission.Parsed.Role),
		)
	}
	return nil
}
