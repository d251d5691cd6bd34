package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"record-storefront/internal/chain"
	"record-storefront/internal/logging"
	"record-storefront/internal/mint"
	"record-storefront/internal/record"
	"record-storefront/internal/web"
)

func serveCommand(v *viper.Viper) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mustConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := commonRun(cfg)
			if err != nil {
				return err
			}
			log := logging.Component(logger, "server")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stores, err := createStores(ctx, cfg, migrate, log)
			if err != nil {
				return err
			}
			defer stores.close()

			wallet := chain.NewHTTPClient(cfg.WalletURL, chain.WithTimeout(cfg.Mint.SignatureTimeout), chain.WithMaxRetries(0))

			rpc := newRPC(cfg)
			reader := record.NewReader(rpc)
			mints := mint.NewService(mint.Options{
				Wallet:           wallet,
				Reader:           reader,
				Store:            stores.mints,
				Events:           stores.events,
				Log:              logging.Component(logger, "mint"),
				SignatureTimeout: cfg.Mint.SignatureTimeout,
			})
			defer mints.Close()

			var heads chain.HeadSubscriber
			if cfg.WSURL != "" {
				wsCfg := chain.DefaultWSConfig()
				wsCfg.Log = logging.Component(logger, "ws")
				ws, err := chain.NewWSClient(ctx, cfg.WSURL, &wsCfg)
				if err != nil {
					log.WithError(err).Warn("head subscription disabled")
				} else {
					defer ws.Close()
					heads = ws
				}
			}

			watcher := mint.NewWatcher(mint.WatcherOptions{
				RPC:      rpc,
				Store:    stores.mints,
				Events:   stores.events,
				Heads:    heads,
				Interval: cfg.Mint.PollInterval,
				Log:      logging.Component(logger, "watcher"),
			})

			srv, err := web.NewServer(web.Options{
				Storefront: newStorefront(cfg, logger, reader, mints),
				Mints:      mints,
				Chain:      rpc,
				Log:        logging.Component(logger, "http"),
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return watcher.Run(gctx) })
			g.Go(func() error { return srv.Run(gctx, cfg.Listen) })

			err = g.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	cmd.Flags().String("listen", ":3000", "HTTP listen address")
	_ = v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}
