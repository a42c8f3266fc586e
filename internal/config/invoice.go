package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoicePolicy carries billing knobs that operators may tune without a restart.
type InvoicePolicy struct {
	DueInDays     int    `mapstructure:"dueInDays"`
	NumberPrefix  string `mapstructure:"numberPrefix"`
	CurrencyLabel string `mapstructure:"currencyLabel"`
}

func DefaultInvoicePolicy() InvoicePolicy {
	return InvoicePolicy{
		DueInDays:     7,
		NumberPrefix:  "INV",
		CurrencyLabel: "VND",
	}
}

// InvoicePolicySource is read by the invoice service on every create.
type InvoicePolicySource interface {
	Get() InvoicePolicy
}

type InvoicePolicyHolder struct {
	current atomic.Value // holds InvoicePolicy
}

// NewStaticInvoicePolicy returns a holder that never reloads.
func NewStaticInvoicePolicy(policy InvoicePolicy) *InvoicePolicyHolder {
	holder := &InvoicePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewInvoicePolicyHolder(log *zap.Logger) (*InvoicePolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.invoice")

	v := viper.New()

	v.SetConfigName("invoice")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/roomlease")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ROOMLEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicePolicy()
	v.SetDefault("invoice.dueInDays", defaults.DueInDays)
	v.SetDefault("invoice.numberPrefix", defaults.NumberPrefix)
	v.SetDefault("invoice.currencyLabel", defaults.CurrencyLabel)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	var policy InvoicePolicy
	if err := v.UnmarshalKey("invoice", &policy); err != nil {
		return nil, err
	}
	if err := validateInvoicePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicePolicy(policy)
	if !fileFound {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicePolicy
		if err := v.UnmarshalKey("invoice", &updated); err != nil {
			log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validateInvoicePolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("invoice policy reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *InvoicePolicyHolder) Get() InvoicePolicy {
	if h == nil {
		return DefaultInvoicePolicy()
	}
	policy, ok := h.current.Load().(InvoicePolicy)
	if !ok {
		return DefaultInvoicePolicy()
	}
	return policy
}

func validateInvoicePolicy(policy InvoicePolicy) error {
	if policy.DueInDays < 0 {
		return errors.New("invoice.dueInDays cannot be negative")
	}
	if strings.TrimSpace(policy.NumberPrefix) == "" {
		return errors.New("invoice.numberPrefix cannot be empty")
	}
	return nil
}
