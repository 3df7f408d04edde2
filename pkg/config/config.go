package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Mollie        MollieConfig
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
	Env          string `envconfig:"CRAFTLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRAFTLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTLINK_DB_DSN"`
	Driver string `envconfig:"CRAFTLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRAFTLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"CRAFTLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRAFTLINK_DB_USER"`
	LegacyPassword string `envconfig:"CRAFTLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRAFTLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRAFTLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRAFTLINK_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CRAFTLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CRAFTLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CRAFTLINK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CRAFTLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CRAFTLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CRAFTLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CRAFTLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CRAFTLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CRAFTLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CRAFTLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CRAFTLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CRAFTLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CRAFTLINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CRAFTLINK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CRAFTLINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CRAFTLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CRAFTLINK_AUTO_MIGRATE" default:"false"`
}

type MollieConfig struct {
	APIKey      string `envconfig:"CRAFTLINK_MOLLIE_API_KEY"`
	WebhookURL  string `envconfig:"CRAFTLINK_MOLLIE_WEBHOOK_URL"`
	RedirectURL string `envconfig:"CRAFTLINK_MOLLIE_REDIRECT_URL"`
	TestMode    bool   `envconfig:"CRAFTLINK_MOLLIE_TEST_MODE" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
