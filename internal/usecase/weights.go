package usecase

import (
	"context"
	"errors"

	"supportrag/internal/domain"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// WeightService reads and writes per-tenant source weights.
type WeightService struct {
	store port.WeightStore
	log   logger.Logger
}

func NewWeightService(store port.WeightStore, log logger.Logger) *WeightService {
	if log == nil {
		log = logger.Discard()
	}
	return &WeightService{store: store, log: log}
}

// GetWeights returns the tenant's normalized weights. Missing or unusable
// stored weights fall back to the defaults.
func (s *WeightService) GetWeights(ctx context.Context, tenantID string) (domain.SourceWeights, error) {
	w, found, err := s.store.GetWeights(ctx, tenantID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.SourceWeights{}, ctxErr
		}
		s.fallback(tenantID, err.Error())
		return domain.DefaultWeights(), nil
	}
	if !found {
		return domain.DefaultWeights(), nil
	}
	if err := w.Validate(); err != nil {
		s.fallback(tenantID, err.Error())
		return domain.DefaultWeights(), nil
	}
	return w.Normalized(), nil
}

func (s *WeightService) fallback(tenantID, reason string) {
	cfgErr := &domain.ConfigurationError{Key: "weights/" + tenantID, Reason: reason}
	s.log.Warn("using default source weights", "tenant", tenantID, "error", cfgErr)
}

// SetWeights validates w and stores it normalized.
func (s *WeightService) SetWeights(ctx context.Context, tenantID string, w domain.SourceWeights) (domain.SourceWeights, error) {
	if tenantID == "" {
		return domain.SourceWeights{}, errors.New("tenant id is required")
	}
	if err := w.Validate(); err != nil {
		return domain.SourceWeights{}, err
	}
	w = w.Normalized()
	if err := s.store.PutWeights(ctx, tenantID, w); err != nil {
		return domain.SourceWeights{}, &domain.StorageError{Op: "put weights", Key: tenantID, Err: err}
	}
	s.log.Info("source weights updated", "tenant", tenantID,
		"global_kb", w.GlobalKB, "tenant_kb", w.TenantKB, "examples", w.Examples, "corrections", w.Corrections)
	return w, nil
}

// ApplyPreset stores the weights of a named preset.
func (s *WeightService) ApplyPreset(ctx context.Context, tenantID, name string) (domain.WeightPreset, error) {
	p, err := domain.LookupPreset(name)
	if err != nil {
		return domain.WeightPreset{}, err
	}
	if _, err := s.SetWeights(ctx, tenantID, p.Weights); err != nil {
		return domain.WeightPreset{}, err
	}
	return p, nil
}

func (s *WeightService) Presets() []domain.WeightPreset {
	return domain.WeightPresets()
}
