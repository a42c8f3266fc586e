package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoicePolicyHolderFallsBackToDefaults(t *testing.T) {
	var holder *InvoicePolicyHolder
	assert.Equal(t, DefaultInvoicePolicy(), holder.Get())

	holder = &InvoicePolicyHolder{}
	assert.Equal(t, DefaultInvoicePolicy(), holder.Get())
}

func TestValidateInvoicePolicy(t *testing.T) {
	assert.NoError(t, validateInvoicePolicy(DefaultInvoicePolicy()))
	assert.Error(t, validateInvoicePolicy(InvoicePolicy{DueInDays: -1, NumberPrefix: "INV"}))
	assert.Error(t, validateInvoicePolicy(InvoicePolicy{DueInDays: 7, NumberPrefix: " "}))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("OVERDUE_SWEEP_ENABLED", "yes")

	cfg := Load()
	assert.Equal(t, "roomlease-dev-secret", cfg.AuthJWTSecret)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.OverdueSweepEnabled)
	assert.True(t, cfg.SeedDemoData)
	assert.False(t, cfg.IsProduction())
}
