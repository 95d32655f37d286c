package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobreops/invoice-triage/internal/models"
)

func TestDefaultPoliciesAreValid(t *testing.T) {
	policies := DefaultPolicies()
	require.NoError(t, policies.Validate())

	assert.Equal(t, 18_417_000.0, policies.AutoApprovalMax)
	assert.Equal(t, 47_329_800.0, policies.SupervisorMax)
	assert.Equal(t, 190_680_000.0, policies.ManagerMax)
	assert.Equal(t, 4200.0, policies.CopUsdRate)
}

func TestPoliciesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policies)
		wantErr string
	}{
		{
			name:    "thresholds out of order",
			mutate:  func(p *Policies) { p.SupervisorMax = p.AutoApprovalMax - 1 },
			wantErr: "supervisor_max",
		},
		{
			name:    "manager below supervisor",
			mutate:  func(p *Policies) { p.ManagerMax = p.SupervisorMax },
			wantErr: "manager_max",
		},
		{
			name:    "zero auto threshold",
			mutate:  func(p *Policies) { p.AutoApprovalMax = 0 },
			wantErr: "auto_approval_max",
		},
		{
			name:    "zero conversion rate",
			mutate:  func(p *Policies) { p.CopUsdRate = 0 },
			wantErr: "cop_usd_rate",
		},
		{
			name:    "penalty below one",
			mutate:  func(p *Policies) { p.EmailAmountPenalty = 0.5 },
			wantErr: "email_amount_penalty",
		},
		{
			name:    "ceiling above one",
			mutate:  func(p *Policies) { p.RejectionCeiling = 1.5 },
			wantErr: "rejection_ceiling",
		},
		{
			name: "weights do not sum to one",
			mutate: func(p *Policies) {
				p.RiskWeights[models.FactorValidationErrors] = 0.5
			},
			wantErr: "must sum to 1.0",
		},
		{
			name: "missing weight factor",
			mutate: func(p *Policies) {
				delete(p.RiskWeights, models.FactorAmountThreshold)
			},
			wantErr: "missing factor",
		},
		{
			name: "negative weight",
			mutate: func(p *Policies) {
				p.RiskWeights[models.FactorDocumentType] = -0.2
				p.RiskWeights[models.FactorValidationErrors] = 0.8
			},
			wantErr: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policies := DefaultPolicies()
			tt.mutate(&policies)

			err := policies.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPoliciesWeightSumTolerance(t *testing.T) {
	policies := DefaultPolicies()
	policies.RiskWeights = map[string]float64{
		models.FactorValidationErrors: 0.4000001,
		models.FactorDocumentType:     0.2,
		models.FactorAmountThreshold:  0.2,
		models.FactorDataCompleteness: 0.1999999,
	}
	assert.NoError(t, policies.Validate())
}

func TestNormalizeToCOP(t *testing.T) {
	policies := DefaultPolicies()

	assert.Equal(t, 45_220_000.0, policies.NormalizeToCOP(45_220_000, models.CurrencyCOP))
	assert.Equal(t, 21_000_000.0, policies.NormalizeToCOP(5_000, models.CurrencyUSD))
	// Unknown currencies pass through; the validator reports them.
	assert.Equal(t, 1_000.0, policies.NormalizeToCOP(1_000, ""))
	assert.Equal(t, 1_000.0, policies.NormalizeToCOP(1_000, "EUR"))
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
policies:
  auto_approval_max: 10000000
  supervisor_max: 20000000
  manager_max: 30000000
processing:
  rate_limit_delay: 250ms
  concurrency: 4
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10_000_000.0, cfg.Policies.AutoApprovalMax)
	assert.Equal(t, 20_000_000.0, cfg.Policies.SupervisorMax)
	assert.Equal(t, 30_000_000.0, cfg.Policies.ManagerMax)
	assert.Equal(t, 250*time.Millisecond, cfg.Processing.RateLimitDelay)
	assert.Equal(t, 4, cfg.Processing.Concurrency)
	assert.Equal(t, "debug", cfg.Logger.Level)

	// Defaults fill everything the file leaves unset.
	assert.Equal(t, 4200.0, cfg.Policies.CopUsdRate)
	assert.Equal(t, "gpt-4", cfg.Extractor.Model)
	assert.True(t, cfg.Processing.EnableCaching)
	assert.Equal(t, "sk-test", cfg.Extractor.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
policies:
  auto_approval_max: 50000000
  supervisor_max: 20000000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
