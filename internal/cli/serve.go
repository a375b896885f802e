package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/docvault/internal/ui"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web front end",
		Long: "Serve the web front end on a local address. The server shares the CLI's\n" +
			"token store, so logging in through either is visible to the other after restart.",
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			addr := a.cfg.Listen
			if cmd.Flags().Changed("listen") {
				addr = listen
			}

			front := ui.New(a.sessions, a.client, a.catalog, a.logger)
			defer front.Close()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, &http.Server{Handler: front.Handler(), ReadHeaderTimeout: 10 * time.Second}, ln)
		}),
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config, 127.0.0.1:5173)")
	return cmd
}

// serve runs srv on ln until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, a *app, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("web front end starting", "addr", ln.Addr().String(), "server", a.cfg.Server)
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("web front end stopped")
	return nil
}
