package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/cobreops/invoice-triage/internal/models"
)

// Config holds all application configuration
type Config struct {
	Policies   Policies         `mapstructure:"policies"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Report     ReportConfig     `mapstructure:"report"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// Policies holds the approval threshold table and risk scoring policy.
// Loaded once, read-only afterwards: the engine constructors take it by
// value so scoring stays pure.
type Policies struct {
	// Percentile cut points in COP, derived offline from the historical
	// amount distribution.
	AutoApprovalMax float64 `mapstructure:"auto_approval_max"`
	SupervisorMax   float64 `mapstructure:"supervisor_max"`
	ManagerMax      float64 `mapstructure:"manager_max"`

	// Conversion rate used to normalize USD amounts to COP.
	CopUsdRate float64 `mapstructure:"cop_usd_rate"`

	// Weights per risk factor, must sum to 1.0.
	RiskWeights map[string]float64 `mapstructure:"risk_weights"`

	// Multiplier applied to the amount component for email invoices
	// before weighting.
	EmailAmountPenalty float64 `mapstructure:"email_amount_penalty"`

	// Risk score above which an invoice is rejected outright.
	RejectionCeiling float64 `mapstructure:"rejection_ceiling"`
}

// ExtractorConfig holds the LLM extraction API configuration
type ExtractorConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Temperature      float32       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxContentLength int           `mapstructure:"max_content_length"`
}

// ProcessingConfig holds batch processing configuration
type ProcessingConfig struct {
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	EnableCaching  bool          `mapstructure:"enable_caching"`
	Concurrency    int           `mapstructure:"concurrency"`
}

// DatabaseConfig holds the audit database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ReportConfig holds result output configuration
type ReportConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	ExcelSummary bool   `mapstructure:"excel_summary"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Threshold defaults from the historical amount distribution
	viper.SetDefault("policies.auto_approval_max", 18_417_000.0)
	viper.SetDefault("policies.supervisor_max", 47_329_800.0)
	viper.SetDefault("policies.manager_max", 190_680_000.0)
	viper.SetDefault("policies.cop_usd_rate", 4200.0)
	viper.SetDefault("policies.email_amount_penalty", 1.2)
	viper.SetDefault("policies.rejection_ceiling", 0.8)
	viper.SetDefault("policies.risk_weights", map[string]float64{
		models.FactorValidationErrors: 0.4,
		models.FactorDocumentType:     0.2,
		models.FactorAmountThreshold:  0.2,
		models.FactorDataCompleteness: 0.2,
	})

	// Extractor defaults
	viper.SetDefault("extractor.model", "gpt-4")
	viper.SetDefault("extractor.temperature", 0.1)
	viper.SetDefault("extractor.max_tokens", 600)
	viper.SetDefault("extractor.timeout", 60*time.Second)
	viper.SetDefault("extractor.max_content_length", 1200)

	// Processing defaults
	viper.SetDefault("processing.rate_limit_delay", 100*time.Millisecond)
	viper.SetDefault("processing.enable_caching", true)
	viper.SetDefault("processing.concurrency", 1)

	// Database defaults
	viper.SetDefault("database.path", "data/triage.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Report defaults
	viper.SetDefault("report.output_dir", "results")
	viper.SetDefault("report.excel_summary", true)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("extractor.api_key", "OPENAI_API_KEY")
	viper.BindEnv("extractor.model", "EXTRACTOR_MODEL")
	viper.BindEnv("report.output_dir", "REPORT_OUTPUT_DIR")
}

// requiredWeightFactors are the risk factors the scorer expects a weight for.
var requiredWeightFactors = []string{
	models.FactorValidationErrors,
	models.FactorDocumentType,
	models.FactorAmountThreshold,
	models.FactorDataCompleteness,
}

// Validate validates the configuration. A failure here is fatal before
// any invoice is processed.
func (c *Config) Validate() error {
	if err := c.Policies.Validate(); err != nil {
		return err
	}

	if c.Extractor.APIKey == "" {
		return fmt.Errorf("extractor.api_key is required")
	}

	if c.Processing.RateLimitDelay < 0 {
		return fmt.Errorf("processing.rate_limit_delay cannot be negative")
	}
	if c.Processing.Concurrency < 1 {
		return fmt.Errorf("processing.concurrency must be at least 1")
	}

	return nil
}

// Validate checks the threshold table and risk weights.
func (p *Policies) Validate() error {
	if p.AutoApprovalMax <= 0 {
		return fmt.Errorf("policies.auto_approval_max must be positive, got %.0f", p.AutoApprovalMax)
	}
	if p.SupervisorMax <= p.AutoApprovalMax {
		return fmt.Errorf("policies.supervisor_max (%.0f) must exceed auto_approval_max (%.0f)", p.SupervisorMax, p.AutoApprovalMax)
	}
	if p.ManagerMax <= p.SupervisorMax {
		return fmt.Errorf("policies.manager_max (%.0f) must exceed supervisor_max (%.0f)", p.ManagerMax, p.SupervisorMax)
	}
	if p.CopUsdRate <= 0 {
		return fmt.Errorf("policies.cop_usd_rate must be positive, got %.2f", p.CopUsdRate)
	}
	if p.EmailAmountPenalty < 1.0 {
		return fmt.Errorf("policies.email_amount_penalty must be at least 1.0, got %.2f", p.EmailAmountPenalty)
	}
	if p.RejectionCeiling <= 0 || p.RejectionCeiling > 1.0 {
		return fmt.Errorf("policies.rejection_ceiling must be in (0, 1], got %.2f", p.RejectionCeiling)
	}

	var sum float64
	for _, factor := range requiredWeightFactors {
		weight, ok := p.RiskWeights[factor]
		if !ok {
			return fmt.Errorf("policies.risk_weights missing factor %q", factor)
		}
		if weight < 0 {
			return fmt.Errorf("policies.risk_weights[%s] cannot be negative, got %.2f", factor, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("policies.risk_weights must sum to 1.0, got %.4f", sum)
	}

	return nil
}

// NormalizeToCOP converts an amount in the given currency to COP. Unknown
// or missing currencies are treated as already being in the base currency;
// the validator flags those separately.
func (p *Policies) NormalizeToCOP(amount float64, currency string) float64 {
	if currency == models.CurrencyUSD {
		return amount * p.CopUsdRate
	}
	return amount
}

// DefaultPolicies returns the policy set used when no configuration file
// is supplied. Values mirror the configuration defaults.
func DefaultPolicies() Policies {
	return Policies{
		AutoApprovalMax:    18_417_000,
		SupervisorMax:      47_329_800,
		ManagerMax:         190_680_000,
		CopUsdRate:         4200,
		EmailAmountPenalty: 1.2,
		RejectionCeiling:   0.8,
		RiskWeights: map[string]float64{
			models.FactorValidationErrors: 0.4,
			models.FactorDocumentType:     0.2,
			models.FactorAmountThreshold:  0.2,
			models.FactorDataCompleteness: 0.2,
		},
	}
}
