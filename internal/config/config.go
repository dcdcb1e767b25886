package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Model  ModelConfig
	App    AppConfig
}

type ServerConfig struct {
	Host        string
	Port        string
	CORSOrigins []string
}

type ModelConfig struct {
	CheckpointPath string
	ModelType      string
	DefaultPath    string
	SharedLibrary  string
}

type AppConfig struct {
	UploadDir         string
	HistoryFile       string
	MaxUploadSize     int64
	AllowedExtensions []string
}

func Load() (*Config, error) {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174")
	viper.SetDefault("MODEL_PATH", "")
	viper.SetDefault("MODEL_TYPE", "efficientnet-b0")
	viper.SetDefault("DEFAULT_MODEL_PATH", "./models/model_embedded.onnx")
	viper.SetDefault("ONNX_SHARED_LIBRARY", "")
	viper.SetDefault("UPLOAD_DIR", "./uploads")
	viper.SetDefault("HISTORY_FILE", "")
	viper.SetDefault("MAX_UPLOAD_SIZE", 16*1024*1024) // 16MB
	viper.SetDefault("ALLOWED_EXTENSIONS", "png,jpg,jpeg,gif,bmp,tiff")

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("SERVER_HOST"),
			Port:        viper.GetString("SERVER_PORT"),
			CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),
		},
		Model: ModelConfig{
			CheckpointPath: viper.GetString("MODEL_PATH"),
			ModelType:      viper.GetString("MODEL_TYPE"),
			DefaultPath:    viper.GetString("DEFAULT_MODEL_PATH"),
			SharedLibrary:  viper.GetString("ONNX_SHARED_LIBRARY"),
		},
		App: AppConfig{
			UploadDir:         viper.GetString("UPLOAD_DIR"),
			HistoryFile:       viper.GetString("HISTORY_FILE"),
			MaxUploadSize:     viper.GetInt64("MAX_UPLOAD_SIZE"),
			AllowedExtensions: splitList(viper.GetString("ALLOWED_EXTENSIONS")),
		},
	}

	// History lives next to the upload directory unless placed explicitly.
	if cfg.App.HistoryFile == "" {
		cfg.App.HistoryFile = filepath.Join(filepath.Dir(cfg.App.UploadDir), "history.json")
	}

	if err := createDirs(cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return cfg, nil
}

func createDirs(cfg *Config) error {
	dirs := []string{
		cfg.App.UploadDir,
		filepath.Dir(cfg.App.HistoryFile),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
