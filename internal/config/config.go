package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	Port           string
	GinMode        string
	Env            string
	LogLevel       string
	ArtifactSource string
	ArtifactDir    string
	ScalerPath     string
	ModelPath      string
	DatabaseURL    string
	EnableDB       bool
	CORSOrigins    []string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		Env:            getEnv("ENV", "production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ArtifactSource: strings.ToLower(getEnv("ARTIFACT_SOURCE", SourceFile)),
		ArtifactDir:    getEnv("ARTIFACT_DIR", "."),
		ScalerPath:     getEnv("SCALER_PATH", "scaler.json"),
		ModelPath:      getEnv("MODEL_PATH", "svm_model.json"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		EnableDB:       strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.ArtifactSource {
	case SourceFile, SourcePostgres:
	default:
		return fmt.Errorf("ARTIFACT_SOURCE must be %q or %q, got %q", SourceFile, SourcePostgres, c.ArtifactSource)
	}
	if c.UsesDB() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true or ARTIFACT_SOURCE=postgres")
	}
	if strings.TrimSpace(c.ScalerPath) == "" || strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("SCALER_PATH and MODEL_PATH must not be empty")
	}
	return nil
}

// UsesDB reports whether a database pool has to be opened.
func (c *Config) UsesDB() bool {
	return c.EnableDB || c.ArtifactSource == SourcePostgres
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
