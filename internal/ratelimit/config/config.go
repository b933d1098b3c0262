package config

import (
	"time"

	platformConfig "snapfeed/internal/platform/config"
	"snapfeed/internal/ratelimit/models"
)

// LimiterSettings bundles a policy with its insurance-store overrides.
// The insurance threshold forces a synthetic block in the fallback store
// during a durable-store outage, so degraded counting still locks out
// aggressive callers.
type LimiterSettings struct {
	Policy                   models.Policy
	InsuranceBlockOnConsumed int
	InsuranceBlockDuration   time.Duration
}

// Config holds the policies for all four limiters plus the request cost
// weighting used by the general middleware. Authenticated callers spend
// fewer points per request than anonymous ones, so anonymous traffic burns
// through the same budget faster.
type Config struct {
	General     LimiterSettings
	Photos      LimiterSettings
	LoginIP     LimiterSettings
	LoginUserIP LimiterSettings

	GeneralCostAuthenticated int
	GeneralCostAnonymous     int
	PhotosCostAuthenticated  int
	PhotosCostAnonymous      int
}

// Default returns the production policy set. In the test environment every
// window and block collapses to one second so suites exercising expiry and
// lockout recovery stay fast; the policy structure is unchanged.
func Default(env platformConfig.Environment) *Config {
	day := 24 * time.Hour

	cfg := &Config{
		General: settings(models.Policy{
			Points:    300,
			Duration:  time.Minute,
			KeyPrefix: models.KeyPrefixGeneral,
		}),
		Photos: settings(models.Policy{
			Points:    10,
			Duration:  time.Minute,
			KeyPrefix: models.KeyPrefixPhotos,
		}),
		LoginIP: settings(models.Policy{
			Points:        100,
			Duration:      day,
			BlockDuration: day,
			KeyPrefix:     models.KeyPrefixLoginIP,
		}),
		LoginUserIP: settings(models.Policy{
			Points:        10,
			Duration:      90 * day,
			BlockDuration: time.Hour,
			KeyPrefix:     models.KeyPrefixLoginUserIP,
		}),
		GeneralCostAuthenticated: 1,
		GeneralCostAnonymous:     30,
		PhotosCostAuthenticated:  1,
		PhotosCostAnonymous:      5,
	}

	if env == platformConfig.EnvTest {
		for _, s := range []*LimiterSettings{&cfg.General, &cfg.Photos, &cfg.LoginIP, &cfg.LoginUserIP} {
			s.Policy.Duration = time.Second
			if s.Policy.BlockDuration > 0 {
				s.Policy.BlockDuration = time.Second
			}
			s.InsuranceBlockDuration = time.Second
		}
	}

	return cfg
}

// settings derives insurance overrides from a policy: the fallback blocks
// one point past the regular budget, for the block duration when the policy
// has one, otherwise for the window.
func settings(p models.Policy) LimiterSettings {
	blockFor := p.BlockDuration
	if blockFor == 0 {
		blockFor = p.Duration
	}
	return LimiterSettings{
		Policy:                   p,
		InsuranceBlockOnConsumed: p.Points + 1,
		InsuranceBlockDuration:   blockFor,
	}
}
