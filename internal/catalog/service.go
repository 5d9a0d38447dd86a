package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vedamart/backend/internal/pricing"
)

type variantQuerier interface {
	VariantsByIDs(ctx context.Context, ids []string) (map[string]pricing.Variant, error)
}

// Service resolves variants with a Redis cache in front of Postgres. Cache
// faults degrade to database reads; only database errors surface to callers.
type Service struct {
	Store  variantQuerier
	Cache  *Cache
	Logger zerolog.Logger
}

func variantKey(id string) string {
	return fmt.Sprintf("catalog:variant:%s", id)
}

// Variants implements pricing.VariantSource. Each id is checked against the
// cache first; misses are fetched from the store in one batch and written back.
func (s *Service) Variants(ctx context.Context, ids []string) (map[string]pricing.Variant, error) {
	out := make(map[string]pricing.Variant, len(ids))
	misses := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var v pricing.Variant
		hit, err := s.Cache.GetJSON(ctx, variantKey(id), &v)
		if err != nil {
			s.Logger.Warn().Err(err).Str("variant_id", id).Msg("variant cache read failed")
			hit = false
		}
		if hit {
			out[id] = v
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := s.Store.VariantsByIDs(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("resolve variants: %w", err)
	}
	for id, v := range fetched {
		out[id] = v
		if err := s.Cache.SetJSON(ctx, variantKey(id), v); err != nil {
			s.Logger.Warn().Err(err).Str("variant_id", id).Msg("variant cache write failed")
		}
	}
	return out, nil
}

// Invalidate drops cached entries after a stock or price mutation.
func (s *Service) Invalidate(ctx context.Context, ids ...string) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = variantKey(id)
	}
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		s.Logger.Warn().Err(err).Msg("variant cache invalidation failed")
	}
}
