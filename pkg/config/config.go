package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Import       ImportConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TEABROKER_APP_ENV" required:"true"`
	Port         string `envconfig:"TEABROKER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEABROKER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEABROKER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TEABROKER_DB_DSN"`
	Driver string `envconfig:"TEABROKER_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TEABROKER_DB_HOST"`
	Port     int    `envconfig:"TEABROKER_DB_PORT" default:"5432"`
	User     string `envconfig:"TEABROKER_DB_USER"`
	Password string `envconfig:"TEABROKER_DB_PASSWORD"`
	Name     string `envconfig:"TEABROKER_DB_NAME"`
	SSLMode  string `envconfig:"TEABROKER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEABROKER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEABROKER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEABROKER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEABROKER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxMaxAttempts int `envconfig:"TEABROKER_DB_TX_MAX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEABROKER_REDIS_URL"`
	Address      string        `envconfig:"TEABROKER_REDIS_ADDR"`
	Password     string        `envconfig:"TEABROKER_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEABROKER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEABROKER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEABROKER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEABROKER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEABROKER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEABROKER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig describes the identity token verifier. Tokens are minted by the
// external identity provider; this service only verifies and trusts them.
type AuthConfig struct {
	Secret string `envconfig:"TEABROKER_AUTH_SECRET" required:"true"`
	Issuer string `envconfig:"TEABROKER_AUTH_ISSUER" required:"true"`
}

type ImportConfig struct {
	BatchSize  int `envconfig:"TEABROKER_IMPORT_BATCH_SIZE" default:"100"`
	MaxWorkers int `envconfig:"TEABROKER_IMPORT_MAX_WORKERS" default:"4"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TEABROKER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEABROKER_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
