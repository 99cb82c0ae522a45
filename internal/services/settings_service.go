package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/eshop/services/orders/internal/cache"
	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/repositories"
)

const settingsCacheTTL = 10 * time.Minute

// SettingsService owns the system settings singleton.
type SettingsService struct {
	repo  repositories.SettingsRepository
	cache *cache.RedisCache
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo repositories.SettingsRepository, redisCache *cache.RedisCache) *SettingsService {
	return &SettingsService{
		repo:  repo,
		cache: redisCache,
	}
}

// Get returns the singleton settings row. Fails with ErrNotFound until
// the first save creates it.
func (s *SettingsService) Get(ctx context.Context) (*models.SystemSettings, error) {
	if s.cache != nil {
		var cached models.SystemSettings
		if err := s.cache.Get(ctx, cache.SettingsCacheKey(), &cached); err == nil {
			return &cached, nil
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Err: err}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.SettingsCacheKey(), settings, settingsCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache system settings")
		}
	}
	return settings, nil
}

// Save updates the singleton in place, inserting it on first use. The row
// count never exceeds one; the cache entry is refreshed on every save.
func (s *SettingsService) Save(ctx context.Context, settings *models.SystemSettings) (*models.SystemSettings, error) {
	if settings.BankAccount == "" {
		return nil, NewValidationError("Bankový účet je povinný")
	}
	if settings.DeliveryFee.IsNegative() || settings.PaymentFee.IsNegative() {
		return nil, NewValidationError("Poplatky nesmú byť záporné")
	}

	saved, err := s.repo.Save(ctx, settings)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.SettingsCacheKey(), saved, settingsCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh settings cache")
		}
	}

	log.Info().Msg("System settings saved")
	return saved, nil
}
