package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	Password        string
	ModelPath       string
	LabelsPath      string   // dataset data.yaml; takes precedence over ClassNames
	ClassNames      []string // class names in model output order
	DetectorBackend string   // "opencv" or "onnxruntime"
	OnnxRuntimeLib  string

	ConfidenceThreshold float64
	NMSThreshold        float64
	InputSize           int

	CameraIndex        int
	ViolationDirectory string
	UploadDirectory    string
	OutputDirectory    string
	DatabasePath       string
	LogDirectory       string
	QualifiedNames     bool // prefix violator crops with the run start time
	StreamInterval     int  // broadcast every N-th annotated frame to viewers

	CompliantColor string
	ViolationColor string
	FallbackColor  string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first; variables already set are kept.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		Password:        getEnv("PASSWORD", "helmet"),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "helmet_train", "helmet_model", "weights", "best.onnx")),
		LabelsPath:      getEnv("LABELS_PATH", ""),
		ClassNames:      getEnvAsList("CLASS_NAMES", []string{"With Helmet", "Without Helmet"}),
		DetectorBackend: getEnv("DETECTOR_BACKEND", "opencv"),
		OnnxRuntimeLib:  getEnv("ONNXRUNTIME_LIB", ""),

		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),
		InputSize:           getEnvAsInt("INPUT_SIZE", 640),

		CameraIndex:        getEnvAsInt("CAMERA_INDEX", 0),
		ViolationDirectory: getEnv("VIOLATION_DIR", filepath.Join(".", "helmet_violations")),
		UploadDirectory:    getEnv("UPLOAD_DIR", filepath.Join(".", "static", "uploads")),
		OutputDirectory:    getEnv("OUTPUT_DIR", filepath.Join(".", "runs", "detect")),
		DatabasePath:       getEnv("DB_PATH", filepath.Join(".", "data", "helmetwatch.db")),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
		QualifiedNames:     getEnvAsBool("QUALIFIED_NAMES", false),
		StreamInterval:     getEnvAsInt("STREAM_INTERVAL", 3),

		CompliantColor: getEnv("COMPLIANT_COLOR", ""),
		ViolationColor: getEnv("VIOLATION_COLOR", ""),
		FallbackColor:  getEnv("FALLBACK_COLOR", ""),
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
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
