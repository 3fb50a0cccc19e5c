package resilience

import "time"

// SpatialSettings guards the PostGIS zone query. A missing extension fails
// every call the same way, so the breaker trips early and stays open longer.
func SpatialSettings() Settings {
	return Settings{
		Name:             "zone-spatial",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
		SuccessThreshold: 1,
	}
}

// CacheSettings guards one Redis-backed cache. Redis blips are short, so the
// breaker probes again quickly.
func CacheSettings(cache string) Settings {
	return Settings{
		Name:             "cache-" + cache,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Name == "" {
		s.Name = "unnamed"
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	return s
}
