// Command ethrpc-gateway is the thin launcher that wires configuration,
// a wallet set, one backend adapter, and the HTTP surface together. Flag
// parsing, dotenv loading, and choosing which backend to instantiate from
// ETHRPC_NETWORK are external-collaborator concerns (§1); this main stays
// intentionally minimal and leaves real deployment shape (systemd unit,
// container entrypoint, graceful signal wiring beyond SIGINT/SIGTERM) to
// the operator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/witnet/ethrpc-gateway/internal/backend"
	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/handlers"
	"github.com/witnet/ethrpc-gateway/internal/httpapi"
	"github.com/witnet/ethrpc-gateway/internal/router"
	"github.com/witnet/ethrpc-gateway/internal/translate"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := gwlog.New("gateway", cfg.LogLevel)

	privKeys, err := wallet.DecodePrivateKeysJSON(cfg.Wallet.PrivateKeysJSON)
	if err != nil {
		return err
	}
	wallets, err := wallet.Build(wallet.BuildParams{
		SeedPhrase:  cfg.Wallet.SeedPhrase,
		NumAddrs:    cfg.Wallet.SeedWallets,
		PrivateKeys: privKeys,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := buildRouter(ctx, cfg, wallets, logger)
	if err != nil {
		return err
	}

	srv := httpapi.New(httpapi.DefaultOptions(":"+cfg.Port), r, logger)
	g, gctx := errgroup.WithContext(ctx)
	httpapi.Serve(gctx, g, srv, logger)

	return g.Wait()
}

// buildRouter selects and constructs the Router for cfg.Network (one of
// "ethers"/"infura"/"conflux"/"celo"/"reef"/"zksync"); TEN is explicitly
// not implemented (§9 Open Question decision, SPEC_FULL.md).
func buildRouter(ctx context.Context, cfg *config.Config, wallets *wallet.WalletSet, logger *gwlog.Logger) (*router.Router, error) {
	switch cfg.Network {
	case "ethers", "":
		w, err := backend.NewEVMWrapper(ctx, cfg.ProviderURL, cfg.Ethers, wallets, logger)
		if err != nil {
			return nil, err
		}
		return router.New(w, nil, genericTable(cfg.Ethers), translate.Identity{}, logger), nil

	case "infura":
		w, err := backend.NewEVMWrapper(ctx, cfg.ProviderURL, cfg.Infura, wallets, logger)
		if err != nil {
			return nil, err
		}
		return router.New(w, nil, genericTable(cfg.Infura), translate.Identity{}, logger), nil

	case "celo":
		w, err := backend.NewCeloWrapper(ctx, cfg.ProviderURL, cfg.Celo, wallets, logger)
		if err != nil {
			return nil, err
		}
		return router.New(w, nil, genericTable(cfg.Celo), translate.Identity{}, logger), nil

	case "zksync":
		w, err := backend.NewZkSyncWrapper(ctx, cfg.ProviderURL, cfg.ZkSync, wallets, logger)
		if err != nil {
			return nil, err
		}
		return router.New(w, nil, genericTable(cfg.ZkSync), translate.Identity{}, logger), nil

	case "conflux":
		w, err := backend.NewConfluxWrapper(ctx, cfg.ProviderURL, cfg.Conflux, wallets, logger)
		if err != nil {
			return nil, err
		}
		tr := translate.NewConfluxTranslator(cfg.Conflux.NetworkID, cfg.Conflux)
		table := genericTable(cfg.Conflux)
		return router.New(w, translate.MethodAlias, confluxHandlerTable(table), tr, logger), nil

	case "reef":
		w, err := backend.NewReefWrapper(ctx, cfg.ProviderURL, cfg.Reef, wallets, logger)
		if err != nil {
			return nil, err
		}
		projector := translate.NewReefProjector(w.Graph)
		return router.New(w, nil, handlers.ReefTable(projector), nil, logger), nil

	default:
		return nil, fmt.Errorf("unknown ETHRPC_NETWORK %q", cfg.Network)
	}
}

func genericTable(cfg config.BackendConfig) handlers.Table {
	t := handlers.Generic()
	if cfg.AlwaysSynced {
		t = handlers.WithAlwaysSynced(t)
	}
	if cfg.MockFilters {
		t = handlers.WithMockFilters(t)
	}
	return t
}

// confluxHandlerTable re-keys the generic table's entries under their
// cfx_* dispatch names (§4.1 step 1: "the handler table below is keyed by
// the rewritten name").
func confluxHandlerTable(generic handlers.Table) handlers.Table {
	out := handlers.Table{}
	for orig, h := range generic {
		if aliased, ok := translate.MethodAlias[orig]; ok {
			out[aliased] = h
			continue
		}
		out[orig] = h
	}
	return out
}
