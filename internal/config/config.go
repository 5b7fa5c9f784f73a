package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/edinet-screener/internal/edinet"
	"github.com/sells-group/edinet-screener/internal/filing"
	"github.com/sells-group/edinet-screener/internal/store"
	"github.com/sells-group/edinet-screener/internal/xbrl"
)

// Config holds the full application configuration.
type Config struct {
	EDINET     EDINETConfig     `yaml:"edinet" mapstructure:"edinet"`
	XBRL       XBRLConfig       `yaml:"xbrl" mapstructure:"xbrl"`
	Filings    FilingsConfig    `yaml:"filings" mapstructure:"filings"`
	Company    CompanyConfig    `yaml:"company" mapstructure:"company"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// EDINETConfig configures the EDINET API v2 client.
type EDINETConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	CodeListURL  string        `yaml:"code_list_url" mapstructure:"code_list_url"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MinInterval  time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	DaysBack     int           `yaml:"days_back" mapstructure:"days_back"`
	Retry        RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures retries of transient EDINET failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// XBRLConfig configures fact extraction.
type XBRLConfig struct {
	// ConceptsPath optionally replaces the built-in concept dictionary.
	ConceptsPath  string `yaml:"concepts_path" mapstructure:"concepts_path"`
	ScopeStrategy string `yaml:"scope_strategy" mapstructure:"scope_strategy"`
	Currency      string `yaml:"currency" mapstructure:"currency"`
}

// FilingsConfig configures annual report selection.
type FilingsConfig struct {
	Policy string       `yaml:"policy" mapstructure:"policy"`
	Rules  filing.Rules `yaml:"rules" mapstructure:"rules"`
}

// CompanyConfig locates the company master and target lists.
type CompanyConfig struct {
	MasterPath string `yaml:"master_path" mapstructure:"master_path"`
	TargetDir  string `yaml:"target_dir" mapstructure:"target_dir"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxWorkers    int `yaml:"max_workers" mapstructure:"max_workers"`
	NumFiles      int `yaml:"num_files" mapstructure:"num_files"`
	ProgressEvery int `yaml:"progress_every" mapstructure:"progress_every"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string           `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// DSN returns the connection string for the configured driver.
func (s StoreConfig) DSN() string {
	if s.Driver == store.DriverPostgres {
		return s.DatabaseURL
	}
	return s.SQLitePath
}

// ExportConfig configures the comparison report.
type ExportConfig struct {
	CSVPath  string `yaml:"csv_path" mapstructure:"csv_path"`
	XLSXPath string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures run alerts. Alerts are sent only when
// WebhookURL is set.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EDINET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The key is commonly exported without the section prefix.
	if err := v.BindEnv("edinet.api_key", "EDINET_EDINET_API_KEY", "EDINET_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind api key")
	}

	rules := filing.DefaultRules()

	// Defaults
	v.SetDefault("edinet.base_url", edinet.DefaultBaseURL)
	v.SetDefault("edinet.code_list_url", edinet.CodeListURL)
	v.SetDefault("edinet.user_agent", "edinet-screener/1.0")
	v.SetDefault("edinet.timeout", 60*time.Second)
	v.SetDefault("edinet.min_interval", 600*time.Millisecond)
	v.SetDefault("edinet.max_body_bytes", int64(200<<20))
	v.SetDefault("edinet.days_back", 365)
	v.SetDefault("edinet.retry.max_attempts", 3)
	v.SetDefault("edinet.retry.initial_backoff", time.Second)
	v.SetDefault("edinet.retry.max_backoff", 30*time.Second)
	v.SetDefault("xbrl.scope_strategy", "dimension")
	v.SetDefault("xbrl.currency", xbrl.DefaultCurrency)
	v.SetDefault("filings.policy", "latest_two")
	v.SetDefault("filings.rules.doc_type_codes", rules.DocTypeCodes)
	v.SetDefault("filings.rules.correction_codes", rules.CorrectionCodes)
	v.SetDefault("filings.rules.xbrl_flag", rules.XBRLFlag)
	v.SetDefault("filings.rules.withdrawal_status", rules.WithdrawalStatus)
	v.SetDefault("filings.rules.disclosure_status", rules.DisclosureStatus)
	v.SetDefault("company.master_path", "EdinetcodeDlInfo.csv")
	v.SetDefault("company.target_dir", "before_screening_lists")
	v.SetDefault("batch.max_workers", 4)
	v.SetDefault("batch.num_files", 1)
	v.SetDefault("batch.progress_every", 10)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.sqlite_path", "public/data/edinet_analysis.db")
	v.SetDefault("export.csv_path", "public/data/company_financials.csv")
	v.SetDefault("export.xlsx_path", "public/data/company_financials.xlsx")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on and reports every
// problem at once.
func (c *Config) Validate(command string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	storeChecks := func() {
		switch c.Store.Driver {
		case store.DriverSQLite:
			require(c.Store.SQLitePath != "", "store.sqlite_path is required")
		case store.DriverPostgres:
			require(c.Store.DatabaseURL != "", "store.database_url is required")
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	}
	extractChecks := func() {
		_, err := xbrl.ParseScopeStrategy(c.XBRL.ScopeStrategy)
		require(err == nil, "xbrl.scope_strategy must be dimension or context_id")
		require(c.XBRL.Currency != "", "xbrl.currency is required")
	}

	switch command {
	case "run":
		require(c.EDINET.APIKey != "", "edinet.api_key is required")
		require(c.EDINET.BaseURL != "", "edinet.base_url is required")
		require(c.EDINET.DaysBack > 0, "edinet.days_back must be > 0")
		require(c.EDINET.MinInterval >= 0, "edinet.min_interval must be >= 0")
		require(c.Company.MasterPath != "", "company.master_path is required")
		require(c.Company.TargetDir != "", "company.target_dir is required")
		require(c.Batch.MaxWorkers >= 1 && c.Batch.MaxWorkers <= 16, "batch.max_workers must be between 1 and 16")
		require(c.Batch.NumFiles >= 1, "batch.num_files must be >= 1")
		_, err := filing.ParsePolicy(c.Filings.Policy)
		require(err == nil, "filings.policy must be latest_two or latest_only")
		require(len(c.Filings.Rules.DocTypeCodes) > 0, "filings.rules.doc_type_codes is required")
		extractChecks()
		storeChecks()
	case "fetch":
		require(c.EDINET.APIKey != "", "edinet.api_key is required")
		require(c.EDINET.BaseURL != "", "edinet.base_url is required")
	case "master":
		require(c.EDINET.CodeListURL != "" || c.Company.MasterPath != "", "edinet.code_list_url or company.master_path is required")
		storeChecks()
	case "extract":
		extractChecks()
	case "export", "migrate", "runs":
		storeChecks()
	case "serve":
		require(c.Server.Port > 0, "server.port must be > 0")
		storeChecks()
	default:
		return eris.Errorf("config: unknown mode %q", command)
	}
	if c.Monitoring.WebhookURL != "" {
		require(c.Monitoring.FailureRateThreshold >= 0 && c.Monitoring.FailureRateThreshold <= 1, "monitoring.failure_rate_threshold must be between 0 and 1")
		require(c.Monitoring.LookbackWindowHours > 0, "monitoring.lookback_window_hours must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
