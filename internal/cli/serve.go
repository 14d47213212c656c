package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/nainya/howcatalog/internal/api"
	"github.com/nainya/howcatalog/internal/config"
	"github.com/nainya/howcatalog/internal/httpapi"
	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/internal/server"
)

const maxMsgSize = 16 * 1024 * 1024

func newServeCommand(o *options) *cobra.Command {
	var grpcAddr, httpAddr, metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over gRPC and REST",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("grpc-addr") {
				o.cfg.Server.GRPCAddr = grpcAddr
			}
			if flags.Changed("http-addr") {
				o.cfg.Server.HTTPAddr = httpAddr
			}
			if flags.Changed("metrics-addr") {
				o.cfg.Server.MetricsAddr = metricsAddr
			}
			if err := o.cfg.Validate(); err != nil {
				return err
			}

			lis, err := Listen(o.cfg.Server)
			if err != nil {
				return err
			}

			app, err := NewApp(o.cfg, o.log)
			if err != nil {
				lis.Close()
				return err
			}
			defer app.Close()

			return Serve(cmd.Context(), app, lis, o.cfg.Server.ShutdownTimeout, o.log)
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "REST listen address, empty disables")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics, health and pprof listen address, empty disables")
	return cmd
}

// Listeners are the sockets Serve accepts on. HTTP and Metrics may be nil.
type Listeners struct {
	GRPC    net.Listener
	HTTP    net.Listener
	Metrics net.Listener
}

// Listen opens the configured listeners
func Listen(cfg config.ServerConfig) (Listeners, error) {
	var lis Listeners
	var err error
	if lis.GRPC, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
		return Listeners{}, fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	if cfg.HTTPAddr != "" {
		if lis.HTTP, err = net.Listen("tcp", cfg.HTTPAddr); err != nil {
			lis.Close()
			return Listeners{}, fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
		}
	}
	if cfg.MetricsAddr != "" {
		if lis.Metrics, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
			lis.Close()
			return Listeners{}, fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
		}
	}
	return lis, nil
}

// Close closes every open listener
func (l Listeners) Close() {
	for _, lis := range []net.Listener{l.GRPC, l.HTTP, l.Metrics} {
		if lis != nil {
			_ = lis.Close()
		}
	}
}

// Serve runs the gRPC, REST and observability servers until ctx is done
// or one of them fails, then shuts all of them down within timeout.
func Serve(ctx context.Context, app *App, lis Listeners, timeout time.Duration, log *logger.Logger) error {
	svc := api.NewService(app.Catalog, log.Component("service"))

	grpcServer := server.NewGRPCServer(svc, app.Metrics, log.Component("grpc"),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)

	var httpServer *http.Server
	if lis.HTTP != nil {
		httpServer = &http.Server{
			Handler:           httpapi.New(svc, log.Component("http"), app.Metrics).Router(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}

	var obs *server.ObservabilityServer
	if lis.Metrics != nil {
		obs = server.NewObservabilityServer(lis.Metrics.Addr().String(), app.Registry, app.Ready, log)
	}

	httpAddr := ""
	if lis.HTTP != nil {
		httpAddr = lis.HTTP.Addr().String()
	}
	log.LogServerStart(lis.GRPC.Addr().String(), httpAddr, app.StorePath)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.LogSignals(gctx)
		return nil
	})

	g.Go(func() error {
		if err := grpcServer.Serve(lis.GRPC); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if httpServer != nil {
		g.Go(func() error {
			if err := httpServer.Serve(lis.HTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	if obs != nil {
		g.Go(func() error {
			return obs.Serve(lis.Metrics)
		})
	}

	log.LogServerReady(lis.GRPC.Addr().String())

	g.Go(func() error {
		<-gctx.Done()
		log.LogServerShutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		if httpServer != nil {
			errs = append(errs, httpServer.Shutdown(shutdownCtx))
		}
		if obs != nil {
			errs = append(errs, obs.Shutdown(shutdownCtx))
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
