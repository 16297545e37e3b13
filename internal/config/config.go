package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Network is the contract registry and RPC endpoint of one chain.
type Network struct {
	Name            string
	RPCURL          string
	NativeSymbol    string
	Factory         string
	PositionManager string
	WrappedNative   string
	Locker          string
	FeeName         string
	CountryCode     uint16
	ExplorerURL     string
}

// Enabled reports whether the network has an RPC endpoint.
func (n Network) Enabled() bool {
	return n.RPCURL != ""
}

// Validate checks that every contract address is a hex address.
func (n Network) Validate() error {
	for field, value := range map[string]string{
		"factory":          n.Factory,
		"position-manager": n.PositionManager,
		"wrapped-native":   n.WrappedNative,
		"locker":           n.Locker,
	} {
		if !common.IsHexAddress(value) {
			return fmt.Errorf("network %s: invalid %s address %q", n.Name, field, value)
		}
	}
	return nil
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Networks map[string]Network

	Listen string

	StorageDriver string
	DataDir       string
	PGDSN         string

	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	Workers   int
	QueueSize int

	ApprovalTimeout time.Duration
	ReceiptTimeout  time.Duration
	NonceRetries    int
	NonceBackoff    time.Duration

	LogLevel string
	LogFile  string
}

// Network returns the named network, failing when it is unknown or has no RPC endpoint.
func (c Config) Network(name string) (Network, error) {
	n, ok := c.Networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q", name)
	}
	if !n.Enabled() {
		return Network{}, fmt.Errorf("network %s has no rpc url", n.Name)
	}
	return n, nil
}

// EnabledNetworks lists the names of networks with an RPC endpoint, sorted.
func (c Config) EnabledNetworks() []string {
	names := make([]string, 0, len(c.Networks))
	for name, n := range c.Networks {
		if n.Enabled() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

var networkDefaults = map[string]map[string]interface{}{
	"polygon": {
		"native-symbol":    "MATIC",
		"factory":          "0x1F98431c8aD98523631AE4a59f267346ea31F984",
		"position-manager": "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		"wrapped-native":   "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
		"locker":           "0x40f6301edb774e8B22ADC874f6cb17242BaEB8c4",
		"fee-name":         "DEFAULT",
		"country-code":     0,
		"explorer-url":     "https://polygonscan.com",
		"rpc":              "",
	},
	"ethereum": {
		"native-symbol":    "ETH",
		"factory":          "0x1F98431c8aD98523631AE4a59f267346ea31F984",
		"position-manager": "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		"wrapped-native":   "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"locker":           "0xFD235968e65B0990584585763f837A5b5330e6DE",
		"fee-name":         "LVP",
		"country-code":     0,
		"explorer-url":     "https://etherscan.io",
		"rpc":              "",
	},
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "polygon")
	v.SetDefault("rpc", "")
	v.SetDefault("listen", ":8080")
	v.SetDefault("storage", "jsonfile")
	v.SetDefault("data-dir", "./data")
	v.SetDefault("pg-dsn", "")
	v.SetDefault("session-backend", "memory")
	v.SetDefault("session-ttl", 30*time.Minute)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-password", "")
	v.SetDefault("redis-db", 0)
	v.SetDefault("workers", 8)
	v.SetDefault("queue-size", 256)
	v.SetDefault("approval-timeout", 60*time.Second)
	v.SetDefault("receipt-timeout", 120*time.Second)
	v.SetDefault("nonce-retries", 3)
	v.SetDefault("nonce-backoff", time.Second)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")
	for name, values := range networkDefaults {
		for key, value := range values {
			v.SetDefault("networks."+name+"."+key, value)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Networks:        make(map[string]Network),
		Listen:          v.GetString("listen"),
		StorageDriver:   strings.ToLower(v.GetString("storage")),
		DataDir:         v.GetString("data-dir"),
		PGDSN:           v.GetString("pg-dsn"),
		SessionBackend:  strings.ToLower(v.GetString("session-backend")),
		SessionTTL:      v.GetDuration("session-ttl"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisPassword:   v.GetString("redis-password"),
		RedisDB:         v.GetInt("redis-db"),
		Workers:         v.GetInt("workers"),
		QueueSize:       v.GetInt("queue-size"),
		ApprovalTimeout: v.GetDuration("approval-timeout"),
		ReceiptTimeout:  v.GetDuration("receipt-timeout"),
		NonceRetries:    v.GetInt("nonce-retries"),
		NonceBackoff:    v.GetDuration("nonce-backoff"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}

	for _, name := range networkNames(v) {
		prefix := "networks." + name + "."
		n := Network{
			Name:            name,
			RPCURL:          v.GetString(prefix + "rpc"),
			NativeSymbol:    v.GetString(prefix + "native-symbol"),
			Factory:         v.GetString(prefix + "factory"),
			PositionManager: v.GetString(prefix + "position-manager"),
			WrappedNative:   v.GetString(prefix + "wrapped-native"),
			Locker:          v.GetString(prefix + "locker"),
			FeeName:         v.GetString(prefix + "fee-name"),
			CountryCode:     uint16(v.GetUint(prefix + "country-code")),
			ExplorerURL:     strings.TrimRight(v.GetString(prefix+"explorer-url"), "/"),
		}
		if n.Enabled() {
			if err := n.Validate(); err != nil {
				return Config{}, err
			}
		}
		cfg.Networks[name] = n
	}

	// --rpc and --network pin a single network's endpoint for one-off CLI commands.
	if rpc := v.GetString("rpc"); rpc != "" {
		name := strings.ToLower(v.GetString("network"))
		n, ok := cfg.Networks[name]
		if !ok {
			return Config{}, fmt.Errorf("unknown network %q", name)
		}
		n.RPCURL = rpc
		if err := n.Validate(); err != nil {
			return Config{}, err
		}
		cfg.Networks[name] = n
	}

	switch cfg.StorageDriver {
	case "jsonfile", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	switch cfg.SessionBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	return cfg, nil
}

func networkNames(v *viper.Viper) []string {
	seen := make(map[string]struct{})
	for name := range v.GetStringMap("networks") {
		seen[strings.ToLower(name)] = struct{}{}
	}
	for name := range networkDefaults {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
