package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Env struct {
	AppAddr string `mapstructure:"APP_ADDR"`
	GinMode string `mapstructure:"GIN_MODE"`
	AppEnv  string `mapstructure:"APP_ENV"`

	DBDSN  string `mapstructure:"DB_DSN"`
	DBUser string `mapstructure:"DB_USER"`
	DBPass string `mapstructure:"DB_PASS"`
	DBHost string `mapstructure:"DB_HOST"`
	DBName string `mapstructure:"DB_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	StripeSecretKey string `mapstructure:"STRIPE_SECRET_KEY"`
	PlatformFeeRate string `mapstructure:"PLATFORM_FEE_RATE"`

	CreditBureauURL    string `mapstructure:"CREDIT_BUREAU_URL"`
	CreditBureauKey    string `mapstructure:"CREDIT_BUREAU_KEY"`
	CreditBureauSecret string `mapstructure:"CREDIT_BUREAU_SECRET"`

	BGCheckURL      string `mapstructure:"BGCHECK_URL"`
	BGCheckAccount  string `mapstructure:"BGCHECK_ACCOUNT"`
	BGCheckPassword string `mapstructure:"BGCHECK_PASSWORD"`

	WebhookSecret  string `mapstructure:"WEBHOOK_SECRET"`
	FingerprintKey string `mapstructure:"FINGERPRINT_KEY"`

	VendorTimeout time.Duration `mapstructure:"VENDOR_TIMEOUT"`

	RateLimitEnabled  bool          `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitCapacity int           `mapstructure:"RATE_LIMIT_CAPACITY"`
	RateLimitRefill   int           `mapstructure:"RATE_LIMIT_REFILL"`
	RateLimitInterval time.Duration `mapstructure:"RATE_LIMIT_INTERVAL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var defaults = map[string]any{
	"APP_ADDR":                    ":8080",
	"GIN_MODE":                    "",
	"APP_ENV":                     "development",
	"DB_DSN":                      "",
	"DB_USER":                     "root",
	"DB_PASS":                     "",
	"DB_HOST":                     "127.0.0.1:3306",
	"DB_NAME":                     "rentcore",
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"AMQP_URL":                    "",
	"AMQP_EXCHANGE":               "rentcore.events",
	"JWT_SECRET":                  "",
	"CORS_ALLOWED_ORIGINS":        "http://localhost:3000,http://127.0.0.1:3000",
	"STRIPE_SECRET_KEY":           "",
	"PLATFORM_FEE_RATE":           "0",
	"CREDIT_BUREAU_URL":           "",
	"CREDIT_BUREAU_KEY":           "",
	"CREDIT_BUREAU_SECRET":        "",
	"BGCHECK_URL":                 "",
	"BGCHECK_ACCOUNT":             "",
	"BGCHECK_PASSWORD":            "",
	"WEBHOOK_SECRET":              "",
	"FINGERPRINT_KEY":             "",
	"VENDOR_TIMEOUT":              "30s",
	"RATE_LIMIT_ENABLED":          true,
	"RATE_LIMIT_CAPACITY":         20,
	"RATE_LIMIT_REFILL":           5,
	"RATE_LIMIT_INTERVAL":         "1m",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
}

// LoadEnv reads .env (when present) and the process environment.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return Env{}, fmt.Errorf("load env: %w", err)
	}
	env.AppAddr = strings.TrimSpace(env.AppAddr)
	if env.AppAddr == "" {
		env.AppAddr = ":8080"
	}
	if _, err := env.PlatformFee(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func (e Env) IsProduction() bool {
	return strings.EqualFold(e.AppEnv, "production")
}

// DSN prefers DB_DSN and otherwise assembles one from the parts. Either way
// clientFoundRows is forced on so RowsAffected counts matched rows, which the
// conditional UPDATEs in the repositories rely on.
func (e Env) DSN() string {
	cfg := mysql.NewConfig()
	if raw := strings.TrimSpace(e.DBDSN); raw != "" {
		parsed, err := mysql.ParseDSN(raw)
		if err != nil {
			return raw
		}
		cfg = parsed
	} else {
		cfg.User = e.DBUser
		cfg.Passwd = e.DBPass
		cfg.Net = "tcp"
		cfg.Addr = e.DBHost
		cfg.DBName = e.DBName
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.Timeout = 5 * time.Second
		cfg.ReadTimeout = 30 * time.Second
		cfg.WriteTimeout = 30 * time.Second
		cfg.Params = map[string]string{"charset": "utf8mb4"}
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// PlatformFee parses PLATFORM_FEE_RATE, which must lie in [0, 1).
func (e Env) PlatformFee() (decimal.Decimal, error) {
	raw := strings.TrimSpace(e.PlatformFeeRate)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("PLATFORM_FEE_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("PLATFORM_FEE_RATE must be in [0,1), got %s", raw)
	}
	return rate, nil
}

func (e Env) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(e.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
