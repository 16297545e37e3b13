// Package service wires the per-network components behind one facade used by the HTTP API and the CLI.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/config"
	"launchpad/internal/errs"
	"launchpad/internal/inventory"
	"launchpad/internal/lock"
	"launchpad/internal/ownership"
	"launchpad/internal/pool"
	"launchpad/internal/session"
	"launchpad/internal/storage"
	"launchpad/internal/storage/jsonfile"
	"launchpad/internal/storage/postgres"
	"launchpad/internal/worker"
)

// Network bundles the components bound to one chain.
type Network struct {
	Config    config.Network
	Gateway   chain.Gateway
	Pools     *pool.Orchestrator
	Locker    *lock.Locker
	Inventory *inventory.Inventory
	Ownership *ownership.Renouncer
}

// Deps are the shared resources a Service is built on.
type Deps struct {
	Gateways map[string]chain.Gateway
	Store    storage.Store
	Sessions session.Store
	Runner   *worker.Runner
	Logger   *zap.Logger
}

// Service is the entry point for every user-facing operation.
type Service struct {
	cfg      config.Config
	networks map[string]*Network
	store    storage.Store
	sessions session.Store
	runner   *worker.Runner
	wizard   *lock.Wizard
	logger   *zap.Logger
	now      func() time.Time

	closers []func() error
}

// New builds a Service over deps. Only networks with a gateway are served.
func New(cfg config.Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("store is nil")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is nil")
	}
	if deps.Runner == nil {
		return nil, errors.New("worker runner is nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	nonceRetry := chain.RetryPolicy{Attempts: cfg.NonceRetries, Delay: cfg.NonceBackoff}
	locks := chain.NewWalletLocks()

	s := &Service{
		cfg:      cfg,
		networks: make(map[string]*Network),
		store:    deps.Store,
		sessions: deps.Sessions,
		runner:   deps.Runner,
		logger:   logger,
		now:      time.Now,
	}
	lockers := make(map[string]*lock.Locker)

	for name, gw := range deps.Gateways {
		netCfg, ok := cfg.Networks[name]
		if !ok {
			return nil, errors.Newf("no configuration for network %q", name)
		}
		netCfg.Name = name
		if err := netCfg.Validate(); err != nil {
			return nil, err
		}
		submitter := chain.NewSubmitter(gw, chain.KeySigner{}, locks, logger)

		pools, err := pool.New(pool.Config{
			Network:         name,
			NativeSymbol:    netCfg.NativeSymbol,
			Factory:         common.HexToAddress(netCfg.Factory),
			PositionManager: common.HexToAddress(netCfg.PositionManager),
			WrappedNative:   common.HexToAddress(netCfg.WrappedNative),
			ApprovalTimeout: cfg.ApprovalTimeout,
			ReceiptTimeout:  cfg.ReceiptTimeout,
			NonceRetry:      nonceRetry,
		}, submitter, deps.Store, deps.Store, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "network %s: pool orchestrator", name)
		}
		locker, err := lock.New(lock.Config{
			Network:         name,
			NativeSymbol:    netCfg.NativeSymbol,
			Locker:          common.HexToAddress(netCfg.Locker),
			PositionManager: common.HexToAddress(netCfg.PositionManager),
			FeeName:         netCfg.FeeName,
			CountryCode:     netCfg.CountryCode,
			ApprovalTimeout: cfg.ApprovalTimeout,
			ReceiptTimeout:  cfg.ReceiptTimeout,
			NonceRetry:      nonceRetry,
		}, submitter, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "network %s: locker", name)
		}
		inv, err := inventory.New(inventory.Config{
			Network:         name,
			PositionManager: common.HexToAddress(netCfg.PositionManager),
			Locker:          common.HexToAddress(netCfg.Locker),
		}, gw, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "network %s: inventory", name)
		}
		renouncer, err := ownership.New(ownership.Config{
			Network:        name,
			ExplorerURL:    netCfg.ExplorerURL,
			ReceiptTimeout: cfg.ReceiptTimeout,
			NonceRetry:     nonceRetry,
		}, submitter, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "network %s: ownership", name)
		}

		lockers[name] = locker
		s.networks[name] = &Network{
			Config:    netCfg,
			Gateway:   gw,
			Pools:     pools,
			Locker:    locker,
			Inventory: inv,
			Ownership: renouncer,
		}
	}

	s.wizard = lock.NewWizard(lockers, deps.Store, deps.Sessions, deps.Runner, logger)
	return s, nil
}

// Open dials every enabled network and opens the configured storage and session backends.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var closers []func() error
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	names := cfg.EnabledNetworks()
	if len(names) == 0 {
		return nil, errors.New("no network has an rpc url configured")
	}
	gateways := make(map[string]chain.Gateway, len(names))
	for _, name := range names {
		client, err := chain.NewClient(ctx, cfg.Networks[name].RPCURL)
		if err != nil {
			return fail(errors.Wrapf(err, "network %s", name))
		}
		closers = append(closers, func() error { client.Close(); return nil })
		gateways[name] = client
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, store.Close)

	sessions, closeSessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeSessions)

	runner := worker.NewRunner(cfg.Workers, cfg.QueueSize, logger)
	closers = append(closers, func() error { runner.Stop(); return nil })

	svc, err := New(cfg, Deps{Gateways: gateways, Store: store, Sessions: sessions, Runner: runner, Logger: logger})
	if err != nil {
		return fail(err)
	}
	svc.closers = closers
	logger.Info("service ready",
		zap.Strings("networks", names),
		zap.String("storage", cfg.StorageDriver),
		zap.String("sessions", cfg.SessionBackend),
	)
	return svc, nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres")
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		store, err := jsonfile.Open(cfg.DataDir)
		if err != nil {
			return nil, errors.Wrap(err, "open data dir")
		}
		return store, nil
	}
}

func openSessions(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Store, func() error, error) {
	if cfg.SessionBackend == "redis" {
		client, err := session.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedis(client, "", cfg.SessionTTL), client.Close, nil
	}

	memory := session.NewMemory(cfg.SessionTTL)
	sweepCtx, stop := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := memory.Sweep(); n > 0 {
					logger.Debug("expired sessions removed", zap.Int("count", n))
				}
			}
		}
	}()
	return memory, func() error { stop(); return nil }, nil
}

// Close stops background work, then releases storage, sessions and RPC clients.
func (s *Service) Close() error {
	var result error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			result = errors.CombineErrors(result, err)
		}
	}
	s.closers = nil
	return result
}

// Networks lists the served network names.
func (s *Service) Networks() []string {
	names := lo.Keys(s.networks)
	sort.Strings(names)
	return names
}

// Network returns the components of a served network.
func (s *Service) Network(name string) (*Network, error) {
	n, ok := s.networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errs.Newf(errs.UserInput, "network", "unsupported network %q", name)
	}
	return n, nil
}

// LockWizard is the per-user approve-then-lock state machine.
func (s *Service) LockWizard() *lock.Wizard {
	return s.wizard
}

func (s *Service) account(ctx context.Context, userID string) (chain.Account, error) {
	return chain.ResolveAccount(ctx, s.store, userID)
}

func parseAddress(op, field, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, errs.Newf(errs.UserInput, op, "invalid %s address %q", field, value)
	}
	return common.HexToAddress(value), nil
}
