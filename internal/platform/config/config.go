package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jinford/dev-onboard/internal/platform/logger"
)

// ストアの種類
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// ソース取得方式
const (
	SourceModeAPI   = "api"
	SourceModeClone = "clone"
)

// 生成AIプロバイダ
const (
	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	Log      LogConfig
	HTTPPort int

	Store    StoreConfig
	Database DatabaseConfig

	GitHub GitHubConfig
	AI     AIConfig

	Analysis AnalysisConfig
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig は永続化先の設定
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GitHubConfig はソース取得の設定
type GitHubConfig struct {
	Token      string
	APIURL     string
	Mode       string
	CloneDepth int

	// GitHub App認証（設定されている場合はTokenより優先）
	AppID             int64
	AppInstallationID int64
	AppPrivateKeyPath string
}

// AIConfig は生成AIの設定
type AIConfig struct {
	Provider          string
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	Temperature       float64
	MaxTokens         int
	PromptTokenBudget int
}

// AnalysisConfig は解析パイプラインの設定
type AnalysisConfig struct {
	Timeout            time.Duration
	MaxRepoSizeKB      int64
	MaxCriticalFetches int
	CacheTTL           time.Duration
	Milestones         []int
	ExtraIgnore        []string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		HTTPPort: getEnvAsInt("HTTP_PORT", 8080),
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", StoreDriverSQLite),
			SQLitePath: getEnv("SQLITE_PATH", "data/dev-onboard.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "devonboard"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "devonboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		GitHub: GitHubConfig{
			Token:             getEnv("GITHUB_TOKEN", ""),
			APIURL:            getEnv("GITHUB_API_URL", ""),
			Mode:              getEnv("SOURCE_MODE", SourceModeAPI),
			CloneDepth:        getEnvAsInt("CLONE_DEPTH", 1),
			AppID:             int64(getEnvAsInt("GITHUB_APP_ID", 0)),
			AppInstallationID: int64(getEnvAsInt("GITHUB_APP_INSTALLATION_ID", 0)),
			AppPrivateKeyPath: getEnv("GITHUB_APP_PRIVATE_KEY_PATH", ""),
		},
		AI: AIConfig{
			Provider:          getEnv("AI_PROVIDER", AIProviderOpenAI),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:       getEnvAsFloat("AI_TEMPERATURE", -1),
			MaxTokens:         getEnvAsInt("AI_MAX_TOKENS", 8000),
			PromptTokenBudget: getEnvAsInt("AI_PROMPT_TOKEN_BUDGET", 6000),
		},
		Analysis: AnalysisConfig{
			Timeout:            getEnvAsDuration("ANALYSIS_TIMEOUT", 5*time.Minute),
			MaxRepoSizeKB:      int64(getEnvAsInt("MAX_REPO_SIZE_KB", 500*1024)),
			MaxCriticalFetches: getEnvAsInt("MAX_CRITICAL_FETCHES", 10),
			CacheTTL:           getEnvAsDuration("CACHE_TTL", 30*24*time.Hour),
			Milestones:         getEnvAsIntList("PROGRESS_MILESTONES", []int{25, 50, 75, 100}),
			ExtraIgnore:        getEnvAsList("CLASSIFIER_EXTRA_IGNORE"),
		},
	}

	return cfg, nil
}

// Validate は列挙値と必須項目を検証します
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	switch c.GitHub.Mode {
	case SourceModeAPI, SourceModeClone:
	default:
		errs = append(errs, fmt.Errorf("unknown SOURCE_MODE %q", c.GitHub.Mode))
	}
	switch c.AI.Provider {
	case AIProviderOpenAI, AIProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AI.Provider))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.GitHub.AppID != 0 && (c.GitHub.AppInstallationID == 0 || c.GitHub.AppPrivateKeyPath == "") {
		errs = append(errs, errors.New("GITHUB_APP_ID requires GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH"))
	}
	if c.Analysis.Timeout <= 0 {
		errs = append(errs, errors.New("ANALYSIS_TIMEOUT must be positive"))
	}
	if c.Analysis.MaxRepoSizeKB <= 0 {
		errs = append(errs, errors.New("MAX_REPO_SIZE_KB must be positive"))
	}

	return errors.Join(errs...)
}

// UsesGitHubApp はGitHub App認証が設定されているかを返します
func (c *Config) UsesGitHubApp() bool {
	return c.GitHub.AppID != 0
}

// HasTemperature は温度設定が明示されているかを返します
func (c *AIConfig) HasTemperature() bool {
	return c.Temperature >= 0
}

// Logger はロガー設定に変換します
func (c LogConfig) Logger() logger.Config {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logger.Config{Level: level, Format: c.Format}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", s)
	}
	return level, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数を取得します
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsIntList はカンマ区切りの整数リストを取得します。不正な値があればデフォルト値を返します
func getEnvAsIntList(key string, defaultValue []int) []int {
	parts := getEnvAsList(key)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
