package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"launchpad/internal/config"
	"launchpad/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:          "launchpad",
		Short:        "Uniswap V3 pool creation, liquidity locking and ownership tools",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("network", "polygon", "network name (polygon, ethereum)")
	flags.String("rpc", "", "RPC URL for --network, overrides the config file")
	flags.String("storage", "jsonfile", "storage driver (jsonfile, postgres)")
	flags.String("data-dir", "./data", "data directory of the jsonfile storage")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("session-backend", "memory", "session backend (memory, redis)")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also write logs to this file, rotated")

	root.AddCommand(
		newServeCmd(),
		newWalletCmd(),
		newPoolCmd(),
		newPositionsCmd(),
		newLocksCmd(),
		newLockCmd(),
		newRenounceCmd(),
		newTxCmd(),
		newTokensCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the per-command runtime: config, logger and an open service.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	svc    *service.Service
	ctx    context.Context
	stop   context.CancelFunc
}

func setup(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	svc, err := service.Open(ctx, cfg, logger)
	if err != nil {
		stop()
		_ = logger.Sync()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, svc: svc, ctx: ctx, stop: stop}, nil
}

func (a *app) close() {
	if err := a.svc.Close(); err != nil {
		a.logger.Warn("close service", zap.Error(err))
	}
	a.stop()
	_ = a.logger.Sync()
}

// network is the --network flag value.
func network(cmd *cobra.Command) string {
	n, _ := cmd.Flags().GetString("network")
	return n
}

func requiredString(cmd *cobra.Command, name string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return v, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(level, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil || file == "" {
		return logger, err
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
		LocalTime:  true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), rotating, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
