package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/piza/prejst/internal/build"
	"github.com/piza/prejst/internal/watcher"
	"github.com/piza/prejst/internal/websocket"
)

func newWatchCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Build, then report template changes as they happen",
		Long: `Build the template tree once, then watch it and report every template
change and deletion. With --rebuild the artifact is rebuilt after each burst
of changes. With --listen the events are streamed over a websocket at /events.

Examples:
  prejst watch                        # Report changes in the current directory
  prejst watch ./tpl --rebuild        # Rebuild on change
  prejst watch --listen :35729        # Stream events to the browser`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.runWatch(ctx, cmd, args)
		},
	}

	addOverrideFlags(cmd.Flags())
	cmd.Flags().BoolP("verbose", "v", false, "list every compiled template")
	cmd.Flags().Bool("rebuild", false, "rebuild the artifact after changes")
	cmd.Flags().Duration("debounce", 300*time.Millisecond, "quiet period before a rebuild")
	cmd.Flags().String("listen", "", "serve the event stream on this address")
	cmd.Flags().StringSlice("origin", nil, "extra origins allowed to connect to the event stream")

	return cmd
}

// runWatch blocks until ctx is cancelled.
func (c *cli) runWatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	project, err := build.Open(ctx, baseDir(args), c.overrides(), build.Options{Logger: c.logger})
	if err != nil {
		return err
	}

	r := newReporter(cmd.OutOrStdout(), c.v.GetBool("verbose"))
	project.Subscribe(r.Observe)

	rebuild := func() {
		result, err := project.BuildAll(ctx, projectMetadata(project))
		if err != nil {
			c.logger.Error(ctx, err, "Build failed")
			return
		}
		r.summary(project, result)
	}
	rebuild()

	fileWatcher, err := watcher.NewFileWatcher(c.v.GetDuration("debounce"), c.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.TemplateFilter)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.ExcludeDirFilter(project.Output))

	fileWatcher.AddListener(func(ev watcher.Event) {
		project.HandleWatchEvent(ev)
	})

	if c.v.GetBool("rebuild") {
		fileWatcher.AddHandler(func(events []watcher.Event) error {
			c.logger.Debug(ctx, "Rebuilding", "changes", len(events))
			rebuild()
			return nil
		})
	}

	if err := fileWatcher.AddRecursive(project.Base, project.Output); err != nil {
		return fmt.Errorf("failed to watch %s: %w", project.Base, err)
	}

	if addr := c.v.GetString("listen"); addr != "" {
		stopServer, err := c.serveEvents(ctx, addr, project)
		if err != nil {
			return err
		}
		defer stopServer()
		fmt.Fprintf(cmd.OutOrStdout(), "📡 Event stream on ws://%s/events\n", addr)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "👀 Watching %s for changes... (Press Ctrl+C to stop)\n", project.Base)
	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "\n🛑 Stopping file watcher...")

	return nil
}

// serveEvents starts the websocket event stream and returns its shutdown
// function.
func (c *cli) serveEvents(ctx context.Context, addr string, project *build.Project) (func(), error) {
	hub := websocket.NewHub(c.logger, c.v.GetStringSlice("origin")...)
	unsubscribe := project.Subscribe(hub.Observe)

	server := &http.Server{
		Addr:              addr,
		Handler:           eventsMux(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Surface immediate bind failures.
	select {
	case err, ok := <-errCh:
		if !ok {
			unsubscribe()
			return nil, fmt.Errorf("event stream server on %s stopped", addr)
		}
		unsubscribe()
		_ = hub.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	case <-time.After(50 * time.Millisecond):
	}

	go func() {
		if err, ok := <-errCh; ok {
			c.logger.Error(ctx, err, "Event stream server stopped")
		}
	}()

	return func() {
		unsubscribe()
		c.logger.Info(ctx, "Closing event stream", "clients", hub.ConnectedClients())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn(shutdownCtx, err, "Event stream shutdown failed")
		}
	}, nil
}

// eventsMux serves the event stream at /events and the connected clients
// as JSON at /clients.
func eventsMux(hub *websocket.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/events", hub)
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hub.Clients()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return mux
}
