// Package di provides dependency injection for repository implementations.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/fundcore/internal/config"
	"github.com/aristath/fundcore/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories and applies their schemas.
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	fundID := cfg.Fund.Supervisor.FundID
	container.Ledger = ledger.NewRepository(container.LedgerDB.Conn(), fundID, log)
	if err := container.Ledger.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate ledger: %w", err)
	}

	log.Info().Msg("Repositories initialized")
	return nil
}
