package core

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"batikcore/internal/rulepack"
	"batikcore/pkg/domain"
)

//go:embed seed_rules.yaml
var seedRulesYAML []byte

// EnsureSeedRules loads the embedded starter rule pack into the store
// exactly once per store lifetime. The seeded marker persists across
// restarts, so operators who delete every seed rule do not get them
// back on the next boot.
func (s *Service) EnsureSeedRules(ctx context.Context) (int, error) {
	var inserted int
	err := s.observe(ctx, "ensure_seed_rules", func(ctx context.Context) error {
		pack, err := rulepack.Decode(seedRulesYAML)
		if err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if tx.Seeded() {
				return nil
			}
			for _, draft := range pack.Rules {
				if _, err := tx.CreateRule(draft); err != nil {
					return fmt.Errorf("seed rules: %w", err)
				}
				inserted++
			}
			tx.MarkSeeded()
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logger.Info("seed rules installed", zap.Int("count", inserted))
	}
	return inserted, nil
}
