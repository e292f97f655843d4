package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Scheduler.validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if c.Composer.Enabled && c.Composer.BaseURL == "" {
		return fmt.Errorf("composer: base_url is required when enabled")
	}
	if c.Composer.MaxReferenceAssets < 0 || c.Composer.MaxReferenceAssets > 14 {
		return fmt.Errorf("composer: max_reference_assets must be in [0,14] (got %d)", c.Composer.MaxReferenceAssets)
	}
	if c.Director.MaxToolSteps < 1 {
		return fmt.Errorf("director: max_tool_steps must be >= 1 (got %d)", c.Director.MaxToolSteps)
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	if s.Workers < 1 {
		return fmt.Errorf("workers must be >= 1 (got %d)", s.Workers)
	}
	if s.RestMin <= 0 || s.RestMax <= 0 || s.RestMin > s.RestMax {
		return fmt.Errorf("rest bounds invalid: min=%v max=%v", s.RestMin, s.RestMax)
	}
	for name, h := range map[string]int{
		"night_start_hour": s.NightStartHour,
		"night_end_hour":   s.NightEndHour,
		"wake_hour":        s.WakeHour,
	} {
		if h < 0 || h > 23 {
			return fmt.Errorf("%s must be in [0,23] (got %d)", name, h)
		}
	}
	if s.StuckThreshold <= 0 {
		return fmt.Errorf("stuck_threshold must be > 0 (got %v)", s.StuckThreshold)
	}
	if s.RecoveryRest <= 0 {
		return fmt.Errorf("recovery_rest must be > 0 (got %v)", s.RecoveryRest)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", s.MaxAttempts)
	}
	return nil
}
