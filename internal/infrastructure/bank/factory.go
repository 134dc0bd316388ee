package bank

import (
	"fmt"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewBankSystem creates the bank adapter selected by cfg.Driver
func NewBankSystem(cfg *config.BankConfig, logger *zap.Logger) (origination.BankSystem, error) {
	switch cfg.Driver {
	case "http":
		return NewHTTPBankSystem(cfg, WithLogger(logger))
	case "sandbox", "":
		logger.Warn("using sandbox bank system; no real bank is contacted")
		return NewSandboxBankSystem(), nil
	default:
		return nil, fmt.Errorf("unknown bank driver %q", cfg.Driver)
	}
}
