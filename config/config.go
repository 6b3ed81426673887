package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

const (
	defaultPMIQueueSize  = 200
	defaultNumPMIWorkers = 2
	defaultPMIBaseTempC  = 10.0
)

type Config struct {
	// database path
	DatabasePath string

	// secret used to sign and verify session tokens
	JWTSecret string

	// PMI recalculation worker settings
	PMIQueueSize  int
	NumPMIWorkers int

	// base temperature (Celsius) for the accumulated degree hours model
	PMIBaseTempC float64
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "cases.db")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := Config{
		DatabasePath:  dbPath,
		JWTSecret:     jwtSecret,
		PMIQueueSize:  getEnvIntOrDefault("PMI_QUEUE_SIZE", defaultPMIQueueSize),
		NumPMIWorkers: getEnvIntOrDefault("NUM_PMI_WORKERS", defaultNumPMIWorkers),
		PMIBaseTempC:  getEnvFloatOrDefault("PMI_BASE_TEMP_C", defaultPMIBaseTempC),
	}

	return cfg, nil
}
