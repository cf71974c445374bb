package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v9"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"intelfeed/internal/app/bootstrap"
	"intelfeed/internal/app/server"
	"intelfeed/internal/export"
	"intelfeed/internal/jobs/runtime"
	"intelfeed/internal/support"
)

const defaultPort = 8082

type environment struct {
	Port      int    `env:"PORT"`
	DataDir   string `env:"DATA_DIR"`
	ExportDir string `env:"EXPORT_DIR"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"debug"`
}

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	var envCfg environment
	if err := env.Parse(&envCfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if level, err := log.ParseLevel(envCfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warn("invalid log level, keeping default", "value", envCfg.LogLevel)
	}

	portFlag := flag.Int("port", defaultPort, "Port for API server")
	exportDirFlag := flag.String("export-dir", "", "Directory export files are published to")
	flag.Parse()

	port := resolvePort(envCfg.Port, *portFlag)

	if *exportDirFlag != "" {
		export.SetOutputDir(*exportDirFlag)
	} else if envCfg.ExportDir != "" {
		export.SetOutputDir(envCfg.ExportDir)
	}

	redisClient, err := support.GetRedisClient()
	if err != nil {
		return fmt.Errorf("failed to get redis client: %w", err)
	}

	heartbeatCancel := runtime.LaunchInstanceHeartbeat(context.Background(), redisClient)
	defer heartbeatCancel()

	bootstrap.Setup(context.Background())

	return server.OpenRoutes(port)
}

func resolvePort(envPort, flagPort int) int {
	if envPort != 0 {
		return envPort
	}
	if raw := os.Getenv("BACKEND_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port != 0 {
			return port
		}
		log.Warn("invalid port override", "env", "BACKEND_PORT", "value", raw)
	}
	return flagPort
}
