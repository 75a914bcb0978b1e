package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pegvault/config"
	"pegvault/core/events"
	"pegvault/native/oracle"
	"pegvault/native/reserve"
	"pegvault/native/token"
	"pegvault/observability/logging"
	"pegvault/rpc"
	"pegvault/state"
	"pegvault/storage"
)

const stableSymbol = "PEG"

func main() {
	configPath := flag.String("config", "./config.toml", "path to the configuration file")
	useMemory := flag.Bool("memdb", false, "run against an in-memory database")
	flag.Parse()

	if err := run(*configPath, *useMemory); err != nil {
		fmt.Fprintf(os.Stderr, "pegvaultd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, useMemory bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("pegvaultd", cfg.Environment)

	var db storage.Database
	if useMemory {
		db = storage.NewMemDB()
	} else {
		db, err = storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
	}
	defer db.Close()

	manager := state.NewManager(db)
	store := reserve.NewStore(manager)
	engine := reserve.NewEngine(store)

	recorder := events.NewRecorder(cfg.EventBufferSize)
	engine.SetEmitter(recorder)

	custody, err := config.ParseAddress(cfg.Custody)
	if err != nil {
		return err
	}
	engine.SetCustody(custody)
	engine.SetStableToken(token.NewLedger(manager, stableSymbol))
	engine.SetCollateralResolver(reserve.CollateralResolverFunc(func(asset [20]byte) (reserve.CollateralAsset, error) {
		return token.NewLedger(manager, token.AssetSymbol(asset)), nil
	}))

	for _, src := range cfg.RateSources {
		fixed, err := oracle.ParseFixed(src.Name, src.Rate)
		if err != nil {
			return fmt.Errorf("rate source %q: %w", src.Name, err)
		}
		if err := engine.RegisterRateSource(fixed.Name(), fixed); err != nil {
			return fmt.Errorf("rate source %q: %w", src.Name, err)
		}
	}

	owner, err := config.ParseAddress(cfg.Owner)
	if err != nil {
		return err
	}
	beneficiary, err := config.ParseAddress(cfg.Beneficiary)
	if err != nil {
		return err
	}
	if err := engine.EnsureParams(reserve.Params{
		Owner:        owner,
		Beneficiary:  beneficiary,
		GlobalTaxBps: cfg.GlobalTaxBps,
	}); err != nil {
		return fmt.Errorf("ensure params: %w", err)
	}

	if err := registerGenesisReserves(engine, cfg); err != nil {
		return err
	}

	auth, err := rpc.NewAuthenticator(cfg.AdminBearerToken)
	if err != nil {
		return err
	}
	server, err := rpc.NewServer(cfg.ListenAddress, engine, recorder, auth, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("pegvaultd starting",
		"listen", cfg.ListenAddress,
		"dataDir", cfg.DataDir,
		"reserves", len(cfg.Reserves),
		"rateSources", len(cfg.RateSources),
	)
	return server.Run(ctx)
}

// registerGenesisReserves registers configured reserves on first boot.
// Reserves already persisted keep their stored parameters; the config is not
// reapplied over state mutated through the admin surface.
func registerGenesisReserves(engine *reserve.Engine, cfg *config.Config) error {
	owner, err := engine.Owner()
	if err != nil {
		return err
	}
	for _, declared := range cfg.Reserves {
		asset, err := config.ParseAddress(declared.Asset)
		if err != nil {
			return err
		}
		_, exists, err := engine.ReserveOf(asset)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := engine.RegisterReserve(owner, reserve.Reserve{
			Asset:           asset,
			MintInterestBps: declared.MintInterestBps,
			BurnTaxBps:      declared.BurnTaxBps,
			VestingPeriod:   declared.VestingPeriod,
			RateSource:      declared.RateSource,
			Disabled:        declared.Disabled,
			Whitelisted:     declared.Whitelisted,
		}); err != nil {
			return fmt.Errorf("register reserve %s: %w", declared.Asset, err)
		}
	}
	return nil
}
