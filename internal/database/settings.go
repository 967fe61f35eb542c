package database

import (
	"strconv"
	"time"

	"emolens/internal/config"
)

// Keys of the persisted loop tunables
const (
	KeyDeferDelay   = "loop.defer_delay_ms"
	KeyTickInterval = "loop.tick_interval_ms"
	KeyJPEGQuality  = "loop.jpeg_quality"
)

// LoopSettings are the runtime-tunable loop values
type LoopSettings struct {
	DeferDelayMs   int `json:"defer_delay_ms" validate:"gte=1,lte=10000"`
	TickIntervalMs int `json:"tick_interval_ms" validate:"gte=0,lte=10000"`
	JPEGQuality    int `json:"jpeg_quality" validate:"gte=1,lte=100"`
}

// SettingsFromLoop extracts the tunables from a loop config
func SettingsFromLoop(cfg config.LoopConfig) LoopSettings {
	return LoopSettings{
		DeferDelayMs:   int(cfg.DeferDelay / time.Millisecond),
		TickIntervalMs: int(cfg.TickInterval / time.Millisecond),
		JPEGQuality:    cfg.JPEGQuality,
	}
}

// Apply overlays the settings onto a loop config
func (s LoopSettings) Apply(cfg config.LoopConfig) config.LoopConfig {
	cfg.DeferDelay = time.Duration(s.DeferDelayMs) * time.Millisecond
	cfg.TickInterval = time.Duration(s.TickIntervalMs) * time.Millisecond
	cfg.JPEGQuality = s.JPEGQuality
	return cfg
}

// SaveLoopSettings persists the tunables
func (d *Database) SaveLoopSettings(s LoopSettings) error {
	values := map[string]int{
		KeyDeferDelay:   s.DeferDelayMs,
		KeyTickInterval: s.TickIntervalMs,
		KeyJPEGQuality:  s.JPEGQuality,
	}
	for key, v := range values {
		if err := d.SaveConfig(key, strconv.Itoa(v)); err != nil {
			return err
		}
	}
	return nil
}

// LoadLoopConfig returns base with any persisted tunables applied.
// Unparseable stored values are ignored.
func (d *Database) LoadLoopConfig(base config.LoopConfig) (config.LoopConfig, error) {
	stored, err := d.ListConfigs()
	if err != nil {
		return base, err
	}

	settings := SettingsFromLoop(base)
	fields := map[string]*int{
		KeyDeferDelay:   &settings.DeferDelayMs,
		KeyTickInterval: &settings.TickIntervalMs,
		KeyJPEGQuality:  &settings.JPEGQuality,
	}
	for key, dst := range fields {
		raw, ok := stored[key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			d.log.WithError(err).Warnf("Ignoring invalid %s=%q", key, raw)
			continue
		}
		*dst = v
	}

	cfg := settings.Apply(base)
	if err := cfg.Validate(); err != nil {
		d.log.WithError(err).Warn("Stored loop settings rejected, using defaults")
		return base, nil
	}
	return cfg, nil
}
