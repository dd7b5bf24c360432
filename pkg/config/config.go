package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify externally issued tokens.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable search and its result policy.
type SchedulerConfig struct {
	PopulationSize   int
	Generations      int
	EliteRatio       float64
	TournamentSize   int
	CrossoverRate    float64
	MutationRate     float64
	MutationAttempts int
	PerturbRatio     float64
	EvalWorkers      int
	Seed             int64
	// RequireComplete fails a job when any session stays unplaced.
	RequireComplete bool
	ResultCacheTTL  time.Duration
}

// JobsConfig sizes the background run queue.
type JobsConfig struct {
	Workers int
	Buffer  int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		PopulationSize:   v.GetInt("SCHEDULER_POPULATION_SIZE"),
		Generations:      v.GetInt("SCHEDULER_GENERATIONS"),
		EliteRatio:       v.GetFloat64("SCHEDULER_ELITE_RATIO"),
		TournamentSize:   v.GetInt("SCHEDULER_TOURNAMENT_SIZE"),
		CrossoverRate:    v.GetFloat64("SCHEDULER_CROSSOVER_RATE"),
		MutationRate:     v.GetFloat64("SCHEDULER_MUTATION_RATE"),
		MutationAttempts: v.GetInt("SCHEDULER_MUTATION_ATTEMPTS"),
		PerturbRatio:     v.GetFloat64("SCHEDULER_PERTURB_RATIO"),
		EvalWorkers:      v.GetInt("SCHEDULER_EVAL_WORKERS"),
		Seed:             v.GetInt64("SCHEDULER_SEED"),
		RequireComplete:  v.GetBool("SCHEDULER_REQUIRE_COMPLETE"),
		ResultCacheTTL:   parseDuration(v.GetString("SCHEDULER_RESULT_CACHE_TTL"), 30*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers: v.GetInt("JOBS_WORKERS"),
		Buffer:  v.GetInt("JOBS_BUFFER"),
		Retries: v.GetInt("JOBS_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_POPULATION_SIZE", 50)
	v.SetDefault("SCHEDULER_GENERATIONS", 100)
	v.SetDefault("SCHEDULER_ELITE_RATIO", 0.1)
	v.SetDefault("SCHEDULER_TOURNAMENT_SIZE", 5)
	v.SetDefault("SCHEDULER_CROSSOVER_RATE", 0.8)
	v.SetDefault("SCHEDULER_MUTATION_RATE", 0.1)
	v.SetDefault("SCHEDULER_MUTATION_ATTEMPTS", 10)
	v.SetDefault("SCHEDULER_PERTURB_RATIO", 0.1)
	v.SetDefault("SCHEDULER_EVAL_WORKERS", 1)
	v.SetDefault("SCHEDULER_SEED", 0)
	v.SetDefault("SCHEDULER_REQUIRE_COMPLETE", true)
	v.SetDefault("SCHEDULER_RESULT_CACHE_TTL", "30m")

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_BUFFER", 16)
	v.SetDefault("JOBS_RETRIES", 0)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
