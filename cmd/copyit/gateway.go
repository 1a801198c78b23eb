package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dashjay/copyit/pkg/gateway"
	"github.com/dashjay/copyit/pkg/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newGatewayCmd(conf *Config) *cobra.Command {
	gatewayCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Serve a local S3 endpoint",
		Long: `Serve a small path-style S3 endpoint backed by a sqlite file. Point copyit at
it with --endpoint http://localhost:8000 --path-style.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			log, err := logging.New(conf.Viper.GetString("log"), c.ErrOrStderr())
			if err != nil {
				return err
			}
			c.SilenceUsage = true

			db, err := gateway.Open(conf.Viper.GetString("gateway.db"))
			if err != nil {
				return err
			}
			proxy, err := gateway.NewS3Proxy(db, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := conf.Viper.GetString("gateway.addr")
			srv := &http.Server{Addr: addr, Handler: proxy}
			errc := make(chan error, 1)
			go func() {
				errc <- srv.ListenAndServe()
			}()
			log.WithField("addr", addr).Infoln("gateway listening")

			select {
			case err := <-errc:
				return errors.Wrap(err, "serve")
			case <-ctx.Done():
			}
			log.Infoln("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	gatewayCmd.Flags().String(
		"addr",
		conf.Flags["addr"].DefValue.(string),
		"Listen address")
	gatewayCmd.Flags().String(
		"db",
		conf.Flags["db"].DefValue.(string),
		"Path of the sqlite database")
	if err := conf.BindFlags(gatewayCmd.Flags()); err != nil {
		panic(err)
	}
	return gatewayCmd
}
