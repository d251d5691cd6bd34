package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"record-storefront/internal/chain"
	"record-storefront/internal/config"
	"record-storefront/internal/indexer"
	"record-storefront/internal/ipfs"
	"record-storefront/internal/logging"
	"record-storefront/internal/record"
	"record-storefront/internal/storage"
	chstore "record-storefront/internal/storage/clickhouse"
	"record-storefront/internal/storage/memory"
	"record-storefront/internal/storage/migrations"
	pgstore "record-storefront/internal/storage/postgres"
	"record-storefront/internal/storefront"
)

func newRPC(cfg *config.Config) *chain.HTTPClient {
	return chain.NewHTTPClient(cfg.RPCURL,
		chain.WithTimeout(cfg.RPC.Timeout),
		chain.WithMaxRetries(cfg.RPC.MaxRetries),
	)
}

// newStorefront wires the indexer, IPFS gateway and reader into a storefront.
// mints may be nil for commands that never mint.
func newStorefront(cfg *config.Config, logger *logrus.Logger, reader *record.Reader, mints storefront.MintTracker) *storefront.Storefront {
	return storefront.New(storefront.Options{
		Indexer: indexer.NewGraphQLClient(cfg.IndexerURL,
			indexer.WithLogger(logging.Component(logger, "indexer")),
		),
		Reader: reader,
		Metadata: ipfs.NewGateway(
			ipfs.WithFetchTimeout(cfg.Gateway.Timeout),
			ipfs.WithGatewayLogger(logging.Component(logger, "gateway")),
		),
		Resolver: ipfs.NewResolver(cfg.LocalGateway, cfg.PublicGateway),
		Mints:    mints,
		PageSize: cfg.PageSize,
		Log:      logging.Component(logger, "storefront"),
	})
}

// mintStores holds the mint ledger.
type mintStores struct {
	mints  storage.MintStore
	events storage.MintEventStore
	close  func()
}

func createStores(ctx context.Context, cfg *config.Config, migrate bool, log *logrus.Entry) (*mintStores, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		return &mintStores{
			mints:  memory.NewMintStore(),
			events: memory.NewMintEventStore(),
			close:  func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN, cfg.Storage.PostgresMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	var chConn *chstore.Conn
	if migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.WithField("files", applied).Info("postgres migrations applied")

		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("clickhouse migrations applied")
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
	}

	return &mintStores{
		mints:  pgstore.NewMintStore(pool),
		events: chstore.NewMintEventStore(chConn),
		close: func() {
			chConn.Close()
			pool.Close()
		},
	}, nil
}
