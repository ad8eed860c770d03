// Package serve implements the HTTP API server command.
package serve

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/siglab/siglab-go/internal/api"
	"github.com/siglab/siglab-go/internal/conf"
	"github.com/siglab/siglab-go/internal/ecg"
	"github.com/siglab/siglab-go/internal/logging"
	"github.com/siglab/siglab-go/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the signal analysis HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Host, "host", settings.WebServer.Host, "Host address to bind to")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port to listen on")

	return cmd
}

func runServer(settings *conf.Settings) error {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	slogger := logging.ForService("server")

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	var opts []api.Option
	clf, err := ecg.LoadClassifier(settings.ECG.ModelPath)
	if err != nil {
		slogger.Warn("ECG classifier unavailable, classify endpoint disabled",
			"model_path", settings.ECG.ModelPath, "error", err)
	} else {
		opts = append(opts, api.WithECGClassifier(clf))
	}

	e := echo.New()
	e.HideBanner = true

	controller, err := api.New(e, settings, metrics, logger, opts...)
	if err != nil {
		return err
	}
	defer controller.Shutdown()

	addr := net.JoinHostPort(settings.WebServer.Host, settings.WebServer.Port)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server stopped", "error", err)
		}
	}()
	slogger.Info("server listening", "addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
