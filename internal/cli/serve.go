package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/correlation"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/watch"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(global *globalOptions) *cobra.Command {
	var (
		table tableOptions
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve [flags] <range>...",
		Short: "Serve the table as an HTML page",
		Long: `Serve the HTML table on --addr. The table is rebuilt from the repository and
the metadata file on every request; known comparisons come from the equality
cache.`,
		Args: rangeArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := watch.WithShutdownSignals(context.Background())
			defer cancel()

			env, err := global.openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			table.html = true
			if _, err := table.viewOptions(); err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s/\n", ln.Addr())

			h := &tableHandler{
				build: func(ctx context.Context) (*correlation.Table, error) {
					return env.buildTable(ctx, args, &table)
				},
				env:    env,
				opts:   &table,
				logger: env.logger.With("component", "server"),
			}
			return serve(ctx, ln, h, env.logger)
		},
	}

	table.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")

	return cmd
}

// tableHandler answers GET / with a freshly built HTML table
type tableHandler struct {
	mu     sync.Mutex // one build at a time, the caches are not shared safely
	build  func(ctx context.Context) (*correlation.Table, error)
	env    *environment
	opts   *tableOptions
	logger logging.Logger
}

func (h *tableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	table, err := h.build(r.Context())
	if err != nil {
		h.logger.Error("failed to build table", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := h.env.writeTable(&buf, table, h.opts); err != nil {
		h.logger.Error("failed to render table", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
	h.logger.Info("served table", "rows", len(table.Rows), "duration", time.Since(start).String())
}

// serve runs the server on ln until ctx is done
func serve(ctx context.Context, ln net.Listener, h http.Handler, logger logging.Logger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
