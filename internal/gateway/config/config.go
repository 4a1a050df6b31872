package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ArtifactBackend selects where uploaded diagrams live.
type ArtifactBackend string

const (
	BackendMemory   ArtifactBackend = "memory"
	BackendS3       ArtifactBackend = "s3"
	BackendPostgres ArtifactBackend = "postgres"
)

type Config struct {
	Port    string
	Env     string
	Model   string
	APIKey  string
	FakeLLM bool

	Artifact ArtifactConfig
}

type ArtifactConfig struct {
	Backend   ArtifactBackend
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	DSN       string
}

// Load reads configuration from the environment (and a .env file if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = ":8081"
	} else if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &Config{
		Port:     port,
		Env:      env,
		Model:    model,
		APIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		FakeLLM:  envBool("PRR_FAKE_LLM"),
		Artifact: loadArtifactConfig(env),
	}, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	cfg := ArtifactConfig{
		Backend:   BackendMemory,
		Endpoint:  strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "prrgen-diagrams"),
		UseSSL:    resolveUseSSL(env),
		DSN:       strings.TrimSpace(os.Getenv("ARTIFACT_PG_DSN")),
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("ARTIFACT_BACKEND"))) {
	case "s3":
		cfg.Backend = BackendS3
	case "postgres":
		cfg.Backend = BackendPostgres
	case "memory":
		cfg.Backend = BackendMemory
	default:
		// Infer from what is configured.
		if cfg.DSN != "" {
			cfg.Backend = BackendPostgres
		} else if cfg.Endpoint != "" {
			cfg.Backend = BackendS3
		}
	}
	return cfg
}

func resolveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envBool(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
