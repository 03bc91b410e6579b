// Lworch-server — MCP сервер LightWAN Orch поверх streamable HTTP.
//
// Инструменты:
//   - get_date_info: дата с опциональным смещением в днях
//   - get_access_token: обмен client credentials на access token
//   - authenticate: класс endpoints по scope токена
//   - get_all_sites_info: список сайтов, постранично или целиком
//
// Плюс prompt initial_instruction — системная инструкция агента
// с подставленными access_token и scope.
//
// Использование:
//   ./lworch-server -config config.yaml
//   ./lworch-server -listen :8000
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ivmalkov/lworch-ai/internal/mcpserve"
	"github.com/ivmalkov/lworch-ai/internal/orch"
	"github.com/ivmalkov/lworch-ai/pkg/config"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// CLI flags
var (
	flagConfig = flag.String("config", "config.yaml", "Path to config.yaml")
	flagListen = flag.String("listen", "", "Listen address (overrides backend.listen)")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	// 1. Переменные окружения из .env — до разбора конфига с ${VAR}
	_ = godotenv.Load()

	// 2. Конфигурация
	cfg, err := config.Load(*flagConfig)
	if err != nil {
		return err
	}
	backendCfg := cfg.Backend.GetDefaults()
	if *flagListen != "" {
		backendCfg.Listen = *flagListen
	}

	// 3. Логгер и graceful shutdown
	logCfg := cfg.Logging.GetDefaults()
	log, err := utils.NewLogger(logCfg.Dir, "lworch-server")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx, shutdown := utils.SetupGracefulShutdownWithContext(log)
	defer shutdown()

	// 4. REST клиент Orch (upstream сам по себе, обычно orch-mock)
	client, err := orch.NewFromConfig(cfg.Orch)
	if err != nil {
		return err
	}

	// 5. MCP сервер до отмены контекста
	server := orch.NewServer(orch.ServerDeps{
		Orch: client,
		Log:  log,
	})

	return mcpserve.Serve(ctx, server, backendCfg.Listen, log)
}
