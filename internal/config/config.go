package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Safety   SafetyConfig
	Twilio   TwilioConfig
	Email    EmailConfig
	MQTT     MQTTConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type SecurityConfig struct {
	JWTSecret          string
	JWTExpirationHours int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	SOSPerMinute       int
	EnableRateLimit    bool
}

// SafetyConfig holds every tunable of the alert engine. The reference values
// mirror the product defaults: a check-in is declared missed after 72 hours,
// a repeat trigger of the same alert type is suppressed for 24 hours, and
// earthquake alerts go out to users within 100 km of the epicenter.
type SafetyConfig struct {
	GracePeriod         time.Duration
	DedupWindow         time.Duration
	ScanInterval        string
	QuakePollInterval   string
	CleanupInterval     string
	MinMagnitude        float64
	AlertRadiusKm       float64
	AdvisoryRadiusKm    float64
	QuakeFeedURL        string
	QuakeFeedTimeout    time.Duration
	QuakeLookback       time.Duration
	RecentEventCache    int
	DispatchWorkers     int
	ProviderTimeout     time.Duration
	AlertRetentionDays  int
	FreeContactLimit    int
	PremiumContactLimit int
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type EmailConfig struct {
	APIURL   string
	APIKey   string
	FromAddr string
	FromName string
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

var requiredEnvVars = []string{
	"DB_HOST",
	"DB_PORT",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
	"JWT_SECRET",
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	if err := validateRequired(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Security: loadSecurityConfig(),
		Safety:   loadSafetyConfig(),
		Twilio:   loadTwilioConfig(),
		Email:    loadEmailConfig(),
		MQTT:     loadMQTTConfig(),
		Logging:  loadLoggingConfig(),
	}

	return cfg, nil
}

func validateRequired() error {
	var missing []string

	for _, key := range requiredEnvVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Safety.GracePeriod <= c.Safety.DedupWindow {
		return fmt.Errorf("grace period (%v) must exceed the dedup window (%v)",
			c.Safety.GracePeriod, c.Safety.DedupWindow)
	}
	if c.Safety.MinMagnitude <= 0 {
		return fmt.Errorf("minimum magnitude must be positive, got %v", c.Safety.MinMagnitude)
	}
	if c.Safety.AlertRadiusKm <= 0 || c.Safety.AdvisoryRadiusKm < c.Safety.AlertRadiusKm {
		return fmt.Errorf("invalid alert radius configuration: alert=%v advisory=%v",
			c.Safety.AlertRadiusKm, c.Safety.AdvisoryRadiusKm)
	}
	if c.Safety.DispatchWorkers < 1 {
		return fmt.Errorf("dispatch workers must be at least 1, got %d", c.Safety.DispatchWorkers)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT secret must not be empty")
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Are You Okay API Configuration ===")
	fmt.Printf("Environment:        %s\n", c.Server.Environment)
	fmt.Printf("Server:             %s:%d\n", c.Server.Host, c.Server.Port)
	fmt.Printf("Database:           %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
	fmt.Printf("Grace period:       %v\n", c.Safety.GracePeriod)
	fmt.Printf("Dedup window:       %v\n", c.Safety.DedupWindow)
	fmt.Printf("Scan interval:      %s\n", c.Safety.ScanInterval)
	fmt.Printf("Quake poll:         %s (min magnitude %.1f, radius %.0f km)\n",
		c.Safety.QuakePollInterval, c.Safety.MinMagnitude, c.Safety.AlertRadiusKm)
	fmt.Printf("Dispatch workers:   %d\n", c.Safety.DispatchWorkers)
	fmt.Printf("MQTT push:          %v\n", c.MQTT.Enabled)
	fmt.Println("======================================")
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "10s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "areyouokay"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "areyouokay"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
	}
}

func loadSecurityConfig() SecurityConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")

	return SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
		SOSPerMinute:       getEnvAsInt("SOS_RATE_LIMIT_PER_MINUTE", 3),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", true),
	}
}

func loadSafetyConfig() SafetyConfig {
	return SafetyConfig{
		GracePeriod:         getEnvAsDuration("CHECKIN_GRACE_PERIOD", "72h"),
		DedupWindow:         getEnvAsDuration("ALERT_DEDUP_WINDOW", "24h"),
		ScanInterval:        getEnv("CHECKIN_SCAN_INTERVAL", "@every 6h"),
		QuakePollInterval:   getEnv("QUAKE_POLL_INTERVAL", "@every 2m"),
		CleanupInterval:     getEnv("ALERT_CLEANUP_INTERVAL", "@daily"),
		MinMagnitude:        getEnvAsFloat("QUAKE_MIN_MAGNITUDE", 4.5),
		AlertRadiusKm:       getEnvAsFloat("QUAKE_ALERT_RADIUS_KM", 100),
		AdvisoryRadiusKm:    getEnvAsFloat("QUAKE_ADVISORY_RADIUS_KM", 1000),
		QuakeFeedURL:        getEnv("QUAKE_FEED_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		QuakeFeedTimeout:    getEnvAsDuration("QUAKE_FEED_TIMEOUT", "10s"),
		QuakeLookback:       getEnvAsDuration("QUAKE_LOOKBACK", "1h"),
		RecentEventCache:    getEnvAsInt("QUAKE_RECENT_CACHE_SIZE", 1000),
		DispatchWorkers:     getEnvAsInt("DISPATCH_WORKERS", 10),
		ProviderTimeout:     getEnvAsDuration("PROVIDER_TIMEOUT", "10s"),
		AlertRetentionDays:  getEnvAsInt("ALERT_RETENTION_DAYS", 30),
		FreeContactLimit:    getEnvAsInt("FREE_CONTACT_LIMIT", 3),
		PremiumContactLimit: getEnvAsInt("PREMIUM_CONTACT_LIMIT", 10),
	}
}

func loadTwilioConfig() TwilioConfig {
	return TwilioConfig{
		AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		FromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
	}
}

func loadEmailConfig() EmailConfig {
	return EmailConfig{
		APIURL:   getEnv("EMAIL_API_URL", "https://api.brevo.com/v3/smtp/email"),
		APIKey:   getEnv("EMAIL_API_KEY", ""),
		FromAddr: getEnv("EMAIL_FROM_ADDR", "alerts@areyouokay.com"),
		FromName: getEnv("EMAIL_FROM_NAME", "Are You Okay"),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "areyouokay-backend"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		TopicPrefix:    getEnv("MQTT_TOPIC_PREFIX", "areyouokay/devices"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultValue)
	return d
}
