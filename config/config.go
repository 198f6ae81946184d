// Package config loads the node's startup configuration, mirroring the
// shape of cmd.serverCmd's config.Load call site: viper-backed,
// overridable by SKYNET_*-prefixed environment variables and an optional
// watched config file.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of configuration keys spec.md §6 names as part
// of the external interface surface.
type Config struct {
	WorkerCount        int    `mapstructure:"worker_count"`
	ModulePath         string `mapstructure:"module_path"`
	ScriptPath         string `mapstructure:"script_path"`
	BootstrapCommand   string `mapstructure:"bootstrap_command"`
	Daemon             bool   `mapstructure:"daemon"`
	ServiceMemoryLimit int    `mapstructure:"service_memory_limit"`

	AdminHTTPAddr string `mapstructure:"admin_http_addr"`
	AdminGRPCAddr string `mapstructure:"admin_grpc_addr"`
	HarborAMQPURL string `mapstructure:"harbor_amqp_url"`
	SocketAddr    string `mapstructure:"socket_addr"`
}

func defaults() map[string]any {
	return map[string]any{
		"worker_count":         8,
		"module_path":          "./service/?.so",
		"script_path":          "",
		"bootstrap_command":    "snlua bootstrap",
		"daemon":               false,
		"service_memory_limit": 0,
		"admin_http_addr":      ":7000",
		"admin_grpc_addr":      ":7001",
		"harbor_amqp_url":      "",
		"socket_addr":          ":7002",
	}
}

// Load builds a Config from (in ascending priority) defaults, an optional
// file at path (if non-empty), and SKYNET_*-prefixed environment
// variables, matching cmd.serverCmd's --config_file flag.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("SKYNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

// Watch arms viper's fsnotify-backed config reload, invoking onChange with
// the freshly unmarshaled Config on every write to the underlying file.
// No-op when path is empty (nothing to watch).
func Watch(path string, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
