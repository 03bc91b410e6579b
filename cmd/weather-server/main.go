// Weather-server — MCP сервер погоды поверх streamable HTTP.
//
// Инструменты:
//   - get_realtime_weather: текущая погода по китайскому названию города
//   - get_forecast: прогноз по дням
//
// Город переводится в adcode через SQLite индекс (см. cmd/adcode-import),
// данные берутся из AMap weather API.
//
// Использование:
//   ./weather-server -config config.yaml
//   ./weather-server -listen :8001
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ivmalkov/lworch-ai/internal/mcpserve"
	"github.com/ivmalkov/lworch-ai/internal/weather"
	"github.com/ivmalkov/lworch-ai/pkg/config"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// CLI flags
var (
	flagConfig = flag.String("config", "config.yaml", "Path to config.yaml")
	flagListen = flag.String("listen", "", "Listen address (overrides weather.listen)")
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
	weatherCfg := cfg.Weather.GetDefaults()
	if *flagListen != "" {
		weatherCfg.Listen = *flagListen
	}

	// 3. Логгер и graceful shutdown
	logCfg := cfg.Logging.GetDefaults()
	log, err := utils.NewLogger(logCfg.Dir, "weather-server")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx, shutdown := utils.SetupGracefulShutdownWithContext(log)
	defer shutdown()

	// 4. Клиент AMap и геокодер
	client, err := weather.NewFromConfig(weatherCfg)
	if err != nil {
		return err
	}

	geocoder, err := weather.OpenGeocoder(weatherCfg.AdcodeDB)
	if err != nil {
		return err
	}
	defer geocoder.Close()

	if n, err := geocoder.Count(); err == nil {
		log.Info("geocode index loaded", "db", weatherCfg.AdcodeDB, "cities", n)
	}

	// 5. MCP сервер до отмены контекста
	server := weather.NewServer(weather.ServerDeps{
		Weather:  client,
		Geocoder: geocoder,
		Log:      log,
	})

	return mcpserve.Serve(ctx, server, weatherCfg.Listen, log)
}
