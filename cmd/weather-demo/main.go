// Weather-demo — одноразовый запрос к погодному MCP серверу.
//
// Подключается к weather-server, отдает модели каталог инструментов
// и прогоняет один вопрос через диалоговый цикл. Ход работы (вызовы
// get_realtime_weather / get_forecast) печатается по мере выполнения,
// финальный ответ модели — в конце.
//
// Использование:
//   ./weather-demo -config config.yaml
//   ./weather-demo -query "明天北京的天气怎么样？"
//   ./weather-demo -server http://localhost:8001/mcp -model glm-4.5
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ivmalkov/lworch-ai/pkg/chat"
	"github.com/ivmalkov/lworch-ai/pkg/config"
	"github.com/ivmalkov/lworch-ai/pkg/factory"
	"github.com/ivmalkov/lworch-ai/pkg/mcpclient"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// Системная инструкция демки. Модель отвечает по-китайски,
// факты берет из инструментов погодного сервера.
const demoInstructions = "You are a Chinese weather assistant. " +
	"You can use available tools to improve the accuracy of your response. " +
	"Finally, you should reply in Chinese in future."

// CLI flags
var (
	flagConfig = flag.String("config", "config.yaml", "Path to config.yaml")
	flagServer = flag.String("server", "http://localhost:8001/mcp", "Weather MCP server endpoint")
	flagQuery  = flag.String("query", "今天杭州的天气怎么样？", "Question for the model")
	flagModel  = flag.String("model", "", "Model alias from config (default: models.default_chat)")
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

	// 2. Конфигурация и модель
	cfg, err := config.Load(*flagConfig)
	if err != nil {
		return err
	}
	modelDef, ok := cfg.GetChatModel(*flagModel)
	if !ok {
		return fmt.Errorf("model '%s' is not defined in models.definitions", *flagModel)
	}

	// 3. Логгер и graceful shutdown
	logCfg := cfg.Logging.GetDefaults()
	log, err := utils.NewLogger(logCfg.Dir, "weather-demo")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx, shutdown := utils.SetupGracefulShutdownWithContext(log)
	defer shutdown()

	// 4. Провайдер модели
	provider, err := factory.NewLLMProvider(modelDef, log)
	if err != nil {
		return err
	}

	// 5. Подключение к погодному бэкенду
	client := mcpclient.New("weather-demo", "1.0.0", log)
	if err := client.Dial(ctx, *flagServer); err != nil {
		return err
	}
	defer client.Close()

	// 6. Один проход диалогового цикла
	session := chat.NewSession(provider, client, chat.Config{
		MaxToolRounds: cfg.Chat.GetDefaults().MaxToolRounds,
	}, log)
	session.SetInstructions(demoInstructions)

	answer, err := session.RunTurn(ctx, *flagQuery, func(ev chat.RoundEvent) {
		fmt.Printf("[Calling tool %s with args %s]\n", ev.Call.Name, ev.Call.Args)
		if ev.Outcome.Failed() {
			fmt.Printf("[Tool %s failed: %s]\n", ev.Call.Name, ev.Outcome.Reason())
		}
	})
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
