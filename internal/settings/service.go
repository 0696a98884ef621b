package settings

import (
	"context"
	"encoding/json"
	"log/slog"

	"personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/cache"
)

// Service resolves effective settings through a TTL cache.
type Service struct {
	store  Store
	cache  *cache.Cache[string, Settings]
	logger *slog.Logger
}

func NewService(store Store, c *cache.Cache[string, Settings], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: c, logger: logger}
}

// For returns the effective settings: defaults, then global, then domain.
func (s *Service) For(ctx context.Context, d string) (Settings, error) {
	if cached, ok := s.cache.Get(d); ok {
		return cached, nil
	}
	effective := Defaults()
	for _, scope := range []string{domain.ReservedDomain, d} {
		raw, err := s.store.Load(ctx, scope)
		if err != nil {
			return Settings{}, dErrors.Wrap(err, dErrors.CodeStorage, "load settings")
		}
		if len(raw) == 0 {
			continue
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			return Settings{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode settings")
		}
		if err := json.Unmarshal(encoded, &effective); err != nil {
			s.logger.WarnContext(ctx, "ignoring malformed settings", "domain", scope, "error", err)
		}
	}
	s.cache.Set(d, effective)
	return effective, nil
}

// Set stores one key for a domain or the global scope and drops cached
// values. A global change affects every domain, so the whole cache goes.
func (s *Service) Set(ctx context.Context, scope, name string, value json.RawMessage) error {
	if scope != domain.ReservedDomain {
		if err := domain.ValidateDomain(scope); err != nil {
			return err
		}
	}
	if !json.Valid(value) {
		return dErrors.Newf(dErrors.CodeValidation, "setting %q is not valid JSON", name)
	}
	if err := s.store.Save(ctx, scope, name, value); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "save setting")
	}
	if scope == domain.ReservedDomain {
		s.cache.Purge()
	} else {
		s.cache.Delete(scope)
	}
	return nil
}

// CacheStats exposes the settings cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
