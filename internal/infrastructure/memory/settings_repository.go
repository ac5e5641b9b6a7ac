package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/colleshop/internal/domain/settings"
)

type SettingsRepository struct {
	mu       sync.RWMutex
	settings *settings.SiteSettings
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) Get(ctx context.Context) (settings.SiteSettings, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return settings.Defaults(), nil
	}
	return *r.settings, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s settings.SiteSettings) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = &s
	return nil
}
