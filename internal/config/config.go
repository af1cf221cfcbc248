package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// Values come from env (optionally a .env file loaded by main).
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Transcription TranscriptionConfig
	LLM           LLMConfig
	Chat          ChatConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PromptsFile optionally overrides the embedded prompt catalog.
	PromptsFile string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. An empty host disables the memory cache and
// the cross-process transcription cap.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// StorageConfig selects the blob backend: "s3" or "memory".
type StorageConfig struct {
	Backend  string
	Bucket   string
	Region   string
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string
}

type TranscriptionConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string

	MaxChunkBytes int
	MaxInFlight   int
	// MaxAttempts bounds provider calls per audio payload, including the first.
	MaxAttempts int

	// GlobalCap limits in-flight provider calls across processes (redis). 0 disables.
	GlobalCap int

	Timeout time.Duration
	UseMock bool
}

type LLMConfig struct {
	APIKey  string
	BaseURL string

	GeneralModel   string
	ReportModel    string
	RedactionModel string

	Temperature float64
	TopP        float64
	MaxTokens   int
	MaxRetries  int

	Timeout time.Duration
	UseMock bool
}

type ChatConfig struct {
	MemoryWindow int
	CacheTTL     time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PromptsFile = strings.TrimSpace(os.Getenv("PROMPTS_FILE"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Storage.Backend = strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))
	c.Storage.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	c.Storage.Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	c.Storage.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	c.Storage.AccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	c.Storage.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	c.Transcription.APIKey = os.Getenv("TRANSCRIBE_API_KEY")
	c.Transcription.BaseURL = strings.TrimSpace(os.Getenv("TRANSCRIBE_BASE_URL"))
	c.Transcription.Model = strings.TrimSpace(os.Getenv("TRANSCRIBE_MODEL"))
	c.Transcription.Language = strings.TrimSpace(os.Getenv("TRANSCRIBE_LANGUAGE"))
	{
		n, err := optionalInt("TRANSCRIBE_MAX_CHUNK_BYTES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Transcription.MaxChunkBytes = n
	}
	{
		n, err := optionalInt("TRANSCRIBE_MAX_IN_FLIGHT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Transcription.MaxInFlight = n
	}
	{
		n, err := optionalInt("TRANSCRIBE_MAX_ATTEMPTS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Transcription.MaxAttempts = n
	}
	{
		n, err := optionalInt("TRANSCRIBE_GLOBAL_CAP")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Transcription.GlobalCap = n
	}
	c.Transcription.Timeout = mustDuration("TRANSCRIBE_TIMEOUT")
	c.Transcription.UseMock = boolEnv("USE_MOCK_TRANSCRIBE")

	c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	c.LLM.GeneralModel = strings.TrimSpace(os.Getenv("LLM_GENERAL_MODEL"))
	c.LLM.ReportModel = strings.TrimSpace(os.Getenv("LLM_REPORT_MODEL"))
	c.LLM.RedactionModel = strings.TrimSpace(os.Getenv("LLM_REDACTION_MODEL"))
	{
		f, err := optionalFloat("LLM_TEMPERATURE")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.LLM.Temperature = f
	}
	{
		f, err := optionalFloat("LLM_TOP_P")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.LLM.TopP = f
	}
	{
		n, err := optionalInt("LLM_MAX_TOKENS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.LLM.MaxTokens = n
	}
	{
		n, err := optionalInt("LLM_MAX_RETRIES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.LLM.MaxRetries = n
	}
	c.LLM.Timeout = mustDuration("LLM_TIMEOUT")
	c.LLM.UseMock = boolEnv("USE_MOCK_LLM")

	{
		n, err := optionalInt("CHAT_MEMORY_WINDOW")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Chat.MemoryWindow = n
	}
	c.Chat.CacheTTL = mustDuration("CHAT_CACHE_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "s3"
		if !c.IsProduction() && c.Storage.Bucket == "" {
			c.Storage.Backend = "memory"
		}
	}
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 storage backend"))
		}
		if c.Storage.Region == "" {
			c.Storage.Region = "us-east-1"
		}
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_BACKEND=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of s3, memory, got %q", c.Storage.Backend))
	}

	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-large-v3-turbo"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Transcription.MaxChunkBytes <= 0 {
		c.Transcription.MaxChunkBytes = 5 * 1024 * 1024
	}
	if c.Transcription.MaxInFlight <= 0 {
		c.Transcription.MaxInFlight = 4
	}
	if c.Transcription.MaxAttempts <= 0 {
		c.Transcription.MaxAttempts = 3
	}
	if c.Transcription.GlobalCap < 0 {
		errs = append(errs, fmt.Errorf("TRANSCRIBE_GLOBAL_CAP must be >= 0, got %d", c.Transcription.GlobalCap))
	}
	if c.Transcription.Timeout <= 0 {
		c.Transcription.Timeout = 2 * time.Minute
	}
	if !c.Transcription.UseMock && c.Transcription.APIKey == "" {
		errs = append(errs, errors.New("TRANSCRIBE_API_KEY is required unless USE_MOCK_TRANSCRIBE=true"))
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.GeneralModel == "" {
		c.LLM.GeneralModel = "llama-3.3-70b-versatile"
	}
	if c.LLM.ReportModel == "" {
		c.LLM.ReportModel = c.LLM.GeneralModel
	}
	if c.LLM.RedactionModel == "" {
		c.LLM.RedactionModel = c.LLM.GeneralModel
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.TopP <= 0 {
		c.LLM.TopP = 0.95
	}
	if c.LLM.TopP > 1 {
		errs = append(errs, fmt.Errorf("LLM_TOP_P must be <= 1, got %v", c.LLM.TopP))
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 90 * time.Second
	}
	if !c.LLM.UseMock && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required unless USE_MOCK_LLM=true"))
	}

	if c.Chat.MemoryWindow <= 0 {
		c.Chat.MemoryWindow = 10
	}
	if c.Chat.CacheTTL <= 0 {
		c.Chat.CacheTTL = 24 * time.Hour
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// RedisEnabled reports whether a redis host was configured.
func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
}

func optionalFloat(key string) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func boolEnv(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
