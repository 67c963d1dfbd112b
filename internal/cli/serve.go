package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/tendril/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server and janitor.
const ShutdownTimeout = 5 * time.Second

// Serve runs the HTTP API and the session janitor until ctx is cancelled.
func Serve(ctx context.Context, app *App, version string) error {
	opts := []httpadapter.Option{
		httpadapter.WithLogger(app.Logger),
		httpadapter.WithMetrics(app.Metrics),
		httpadapter.WithVersion(version),
	}
	if app.Keys != nil {
		opts = append(opts, httpadapter.WithKeys(app.Keys))
	}
	api := httpadapter.NewServer(app.Repo, app.Runner, opts...)
	srv := app.HTTPServer(api.Handler())

	jan, err := app.Janitor()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("Tendril HTTP server listening", "address", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if jan != nil {
		jan.Start()
	}
	g.Go(func() error {
		<-ctx.Done()
		app.Logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		var errs []error
		if jan != nil {
			errs = append(errs, jan.Stop(shutdownCtx))
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	app.Logger.Info("Server exiting")
	return nil
}
