package config

import (
	"os"
	"path/filepath"
	"strconv"

	"fleetcast/internal/forecast"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	LogDir              string
	ParamsDir           string
	FleetDataFile       string
	Profile             string
	EnableMermaidCharts bool
	HazardCacheSize     int
	CalibrationBounds   forecast.Bounds
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	paramsDir := getEnv("PARAMS_DIR", filepath.Join(dataPath, "params"))

	if err := os.MkdirAll(paramsDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", paramsDir).Msg("Failed to create parameter directory")
	}

	cfg := &AppConfig{
		DataPath:            dataPath,
		LogDir:              logDir,
		ParamsDir:           paramsDir,
		FleetDataFile:       getEnv("FLEET_DATA_FILE", filepath.Join(dataPath, "fleet.yaml")),
		Profile:             getEnv("PROFILE", "default"),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
		HazardCacheSize:     getEnvInt("HAZARD_CACHE_SIZE", 64),
		CalibrationBounds: forecast.Bounds{
			Min: getEnvFloat("CALIBRATION_MIN", forecast.DefaultBounds.Min),
			Max: getEnvFloat("CALIBRATION_MAX", forecast.DefaultBounds.Max),
		},
	}

	if cfg.CalibrationBounds.Min <= 0 || cfg.CalibrationBounds.Min > cfg.CalibrationBounds.Max {
		log.Warn().
			Float64("min", cfg.CalibrationBounds.Min).
			Float64("max", cfg.CalibrationBounds.Max).
			Msg("Invalid calibration bounds, falling back to defaults")
		cfg.CalibrationBounds = forecast.DefaultBounds
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
