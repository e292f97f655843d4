package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Director  DirectorConfig  `yaml:"director"`
	Composer  ComposerConfig  `yaml:"composer"`
	Weather   WeatherConfig   `yaml:"weather"`
	Trends    TrendsConfig    `yaml:"trends"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"   env:"DATABASE_MIGRATE_ON_START"   env-default:"true"`
}

// SchedulerConfig holds the lifecycle scheduler policy.
//
// NightStartHour/NightEndHour bound the local-time night window; a persona
// activated (or due to wake) inside it sleeps until WakeHour instead of
// planning. StuckThreshold and RecoveryRest were tuned constants in earlier
// deployments and stay configurable on purpose.
type SchedulerConfig struct {
	Workers        int           `yaml:"workers"         env:"SCHEDULER_WORKERS"         env-default:"4"`
	PollInterval   time.Duration `yaml:"poll_interval"   env:"SCHEDULER_POLL_INTERVAL"   env-default:"5s"`
	ClaimBatch     int           `yaml:"claim_batch"     env:"SCHEDULER_CLAIM_BATCH"     env-default:"10"`
	LeaseDuration  time.Duration `yaml:"lease_duration"  env:"SCHEDULER_LEASE_DURATION"  env-default:"5m"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"SCHEDULER_MAX_ATTEMPTS"    env-default:"5"`
	NightStartHour int           `yaml:"night_start_hour" env:"SCHEDULER_NIGHT_START_HOUR" env-default:"23"`
	NightEndHour   int           `yaml:"night_end_hour"  env:"SCHEDULER_NIGHT_END_HOUR"  env-default:"7"`
	WakeHour       int           `yaml:"wake_hour"       env:"SCHEDULER_WAKE_HOUR"       env-default:"7"`
	RestMin        time.Duration `yaml:"rest_min"        env:"SCHEDULER_REST_MIN"        env-default:"30m"`
	RestMax        time.Duration `yaml:"rest_max"        env:"SCHEDULER_REST_MAX"        env-default:"6h"`
	ManualRest     time.Duration `yaml:"manual_rest"     env:"SCHEDULER_MANUAL_REST"     env-default:"5s"`
	RecoveryRest   time.Duration `yaml:"recovery_rest"   env:"SCHEDULER_RECOVERY_REST"   env-default:"3h"`
	StuckThreshold time.Duration `yaml:"stuck_threshold" env:"SCHEDULER_STUCK_THRESHOLD" env-default:"45m"`
	SweepInterval  time.Duration `yaml:"sweep_interval"  env:"SCHEDULER_SWEEP_INTERVAL"  env-default:"10m"`
}

// DirectorConfig holds decision engine (LLM) settings.
type DirectorConfig struct {
	APIKey       string        `yaml:"api_key"        env:"DIRECTOR_API_KEY"`
	Model        string        `yaml:"model"          env:"DIRECTOR_MODEL"          env-default:"claude-sonnet-4-5"`
	MaxTokens    int64         `yaml:"max_tokens"     env:"DIRECTOR_MAX_TOKENS"     env-default:"2048"`
	Timeout      time.Duration `yaml:"timeout"        env:"DIRECTOR_TIMEOUT"        env-default:"90s"`
	MaxToolSteps int           `yaml:"max_tool_steps" env:"DIRECTOR_MAX_TOOL_STEPS" env-default:"4"`
}

// ComposerConfig holds content generator settings.
type ComposerConfig struct {
	Enabled            bool          `yaml:"enabled"              env:"COMPOSER_ENABLED"              env-default:"true"`
	BaseURL            string        `yaml:"base_url"             env:"COMPOSER_BASE_URL"`
	APIKey             string        `yaml:"api_key"              env:"COMPOSER_API_KEY"`
	Timeout            time.Duration `yaml:"timeout"              env:"COMPOSER_TIMEOUT"              env-default:"2m"`
	MaxReferenceAssets int           `yaml:"max_reference_assets" env:"COMPOSER_MAX_REFERENCE_ASSETS" env-default:"14"`
}

// WeatherConfig holds weather provider settings.
type WeatherConfig struct {
	BaseURL string        `yaml:"base_url" env:"WEATHER_BASE_URL" env-default:"https://api.open-meteo.com/v1/forecast"`
	Timeout time.Duration `yaml:"timeout"  env:"WEATHER_TIMEOUT"  env-default:"10s"`
}

// TrendsConfig holds trends provider settings.
type TrendsConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"TRENDS_BASE_URL"   env-default:"https://trends.google.com/trends/api"`
	Timeout   time.Duration `yaml:"timeout"    env:"TRENDS_TIMEOUT"    env-default:"15s"`
	CacheTTL  time.Duration `yaml:"cache_ttl"  env:"TRENDS_CACHE_TTL"  env-default:"4h"`
	CacheSize int           `yaml:"cache_size" env:"TRENDS_CACHE_SIZE" env-default:"128"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
