package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	PublicBaseURL     string // verification links embedded in QR codes: {PublicBaseURL}/verify/{hash}
	BackgroundFitMode string // stretch | contain | cover
	AssetDir          string // local background images; ignored when MinIO is configured

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	PaymentGatewayURL   string
	PaymentMerchantID   string
	PaymentTerminalID   string
	PaymentSecretKey    string
	PaymentTimeout      time.Duration
	PaymentCallbackBase string // where the gateway posts results, e.g. https://api.example.com
	PaymentResultURL    string // dealer-facing page the callback redirects to
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("BACKGROUND_FIT_MODE", "stretch")
	viper.SetDefault("ASSET_DIR", "./assets")
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", 15)
	viper.SetDefault("MINIO_BUCKET", "certificate-backgrounds")

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	timeout := time.Duration(viper.GetInt("PAYMENT_TIMEOUT_SECONDS")) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),

		PublicBaseURL:     trimURL(viper.GetString("PUBLIC_BASE_URL"), "http://localhost:"+port),
		BackgroundFitMode: strings.ToLower(strings.TrimSpace(viper.GetString("BACKGROUND_FIT_MODE"))),
		AssetDir:          viper.GetString("ASSET_DIR"),

		MinIOEndpoint:  viper.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey: viper.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey: viper.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:    viper.GetString("MINIO_BUCKET"),
		MinIOUseSSL:    strings.EqualFold(viper.GetString("MINIO_USE_SSL"), "true"),

		PaymentGatewayURL:   trimURL(viper.GetString("PAYMENT_GATEWAY_URL"), ""),
		PaymentMerchantID:   viper.GetString("PAYMENT_MERCHANT_ID"),
		PaymentTerminalID:   viper.GetString("PAYMENT_TERMINAL_ID"),
		PaymentSecretKey:    viper.GetString("PAYMENT_SECRET_KEY"),
		PaymentTimeout:      timeout,
		PaymentCallbackBase: trimURL(viper.GetString("PAYMENT_CALLBACK_BASE_URL"), "http://localhost:"+port),
		PaymentResultURL:    trimURL(viper.GetString("PAYMENT_RESULT_URL"), "http://localhost:3000/dealer/balance"),
	}, nil
}

func trimURL(s, fallback string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return fallback
	}
	return s
}
