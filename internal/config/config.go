package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pinto-org/tractor-operator/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Tractor   TractorConfig   `mapstructure:"tractor"`
	Operator  OperatorConfig  `mapstructure:"operator"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. The database is an
// optional audit sink; leaving the DSN empty disables it entirely.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// ChainConfig covers on-chain data access.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TractorConfig locates the protocol contracts and scopes which published
// requisitions are considered.
type TractorConfig struct {
	DiamondAddress      string `mapstructure:"diamond_address"`
	SowBlueprintAddress string `mapstructure:"sow_blueprint_address"`
	PublisherFilter     string `mapstructure:"publisher_filter"`
}

// OperatorConfig identifies the operator account and execution behaviour.
type OperatorConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	Mode       string `mapstructure:"mode"`
	Address    string `mapstructure:"address"`
}

// PricingConfig selects the USD price source. When both feed addresses are
// set the Chainlink oracle is used; otherwise the static rates apply.
type PricingConfig struct {
	BaseAssetFeed string `mapstructure:"base_asset_feed"`
	TipAssetFeed  string `mapstructure:"tip_asset_feed"`
	StaticBaseUSD string `mapstructure:"static_base_usd"`
	StaticTipUSD  string `mapstructure:"static_tip_usd"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tractor-operator")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "10s")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("chain.request_timeout", "10s")

	v.SetDefault("operator.mode", "preview")

	v.SetDefault("pricing.static_base_usd", "0")
	v.SetDefault("pricing.static_tip_usd", "0")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Tractor.DiamondAddress == "" {
		return fmt.Errorf("tractor.diamond_address is required")
	}
	if !common.IsHexAddress(c.Tractor.DiamondAddress) {
		return fmt.Errorf("tractor.diamond_address is not a valid address")
	}
	if c.Tractor.SowBlueprintAddress == "" {
		return fmt.Errorf("tractor.sow_blueprint_address is required")
	}
	if !common.IsHexAddress(c.Tractor.SowBlueprintAddress) {
		return fmt.Errorf("tractor.sow_blueprint_address is not a valid address")
	}
	if c.Tractor.PublisherFilter != "" && !common.IsHexAddress(c.Tractor.PublisherFilter) {
		return fmt.Errorf("tractor.publisher_filter is not a valid address")
	}
	switch c.Operator.Mode {
	case "preview", "execute":
	default:
		return fmt.Errorf("operator.mode must be preview or execute")
	}
	if c.Operator.Mode == "execute" && c.Operator.PrivateKey == "" {
		return fmt.Errorf("operator.private_key is required in execute mode")
	}
	if c.Operator.PrivateKey == "" && c.Operator.Address == "" {
		return fmt.Errorf("operator.address is required when no private key is set")
	}
	if (c.Pricing.BaseAssetFeed == "") != (c.Pricing.TipAssetFeed == "") {
		return fmt.Errorf("pricing feeds must be configured together")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
