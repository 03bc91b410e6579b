// Lworch-chat — интерактивный клиент LightWAN Orch Server.
//
// Подключается к lworch-server, спрашивает client_id и client_secret,
// обменивает их на access token и забирает initial_instruction prompt
// как системную инструкцию. Дальше обычный REPL: вопрос за вопросом,
// вызовы инструментов печатаются красным по ходу работы, финальный
// ответ модели — зеленым. Выход — "quit".
//
// Использование:
//   ./lworch-chat -config config.yaml
//   ./lworch-chat -model glm-4.5
//   ./lworch-chat -list-models
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ivmalkov/lworch-ai/pkg/chat"
	"github.com/ivmalkov/lworch-ai/pkg/config"
	"github.com/ivmalkov/lworch-ai/pkg/factory"
	"github.com/ivmalkov/lworch-ai/pkg/mcpclient"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// CLI flags
var (
	flagConfig     = flag.String("config", "config.yaml", "Path to config.yaml")
	flagServer     = flag.String("server", "", "Backend MCP endpoint (overrides backend.server_url)")
	flagModel      = flag.String("model", "", "Model alias from config (default: models.default_chat)")
	flagListModels = flag.Bool("list-models", false, "List models available on the endpoint and exit")
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
	backendCfg := cfg.Backend.GetDefaults()
	if *flagServer != "" {
		backendCfg.ServerURL = *flagServer
	}
	chatCfg := cfg.Chat.GetDefaults()
	modelDef, ok := cfg.GetChatModel(*flagModel)
	if !ok {
		return fmt.Errorf("model '%s' is not defined in models.definitions", *flagModel)
	}

	// 3. Логгер и graceful shutdown
	logCfg := cfg.Logging.GetDefaults()
	log, err := utils.NewLogger(logCfg.Dir, "lworch-chat")
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

	// Проверка ключа и endpoint, бэкенд не нужен
	if *flagListModels {
		names, err := provider.ListModels(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	// 5. Подключение к MCP бэкенду
	client := mcpclient.New("lworch-chat", "1.0.0", log)
	if err := client.Dial(ctx, backendCfg.ServerURL); err != nil {
		return err
	}
	defer client.Close()

	// 6. Сессия и интерактивный цикл
	session := chat.NewSession(provider, client, chat.Config{
		MaxToolRounds: chatCfg.MaxToolRounds,
	}, log)

	return repl(ctx, session, cfg.Orch.GetDefaults().BaseURL, chatCfg.MaxToolRounds)
}

// repl ведет интерактивный цикл: рукопожатие с бэкендом, затем
// запрос-ответ до "quit" или конца stdin.
func repl(ctx context.Context, session *chat.Session, orchURL string, maxRounds int) error {
	in := bufio.NewScanner(os.Stdin)

	fmt.Println(bannerStyle("我是LightWAN Orch Server智能查询小助手!"))
	fmt.Println(bannerStyle(fmt.Sprintf(
		"我假设你的Server地址是%s，接下来请你先提供你的client_id和client_secret，不然没法正常工作喔.", orchURL)))

	clientID, err := ask(in, "请输入你的client_id:")
	if err != nil {
		return fmt.Errorf("read client_id: %w", err)
	}
	clientSecret, err := ask(in, "请输入你的client_secret:")
	if err != nil {
		return fmt.Errorf("read client_secret: %w", err)
	}

	_, scope, err := session.Bootstrap(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}
	fmt.Println(bannerStyle(fmt.Sprintf("认证成功，scope: %s", scope)))

	for {
		fmt.Println()
		query, err := ask(in, "Query:")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.EqualFold(query, "quit") {
			return nil
		}

		answer, err := session.RunTurn(ctx, query, func(ev chat.RoundEvent) {
			fmt.Println(toolStyle(fmt.Sprintf("正在调用工具 %s，参数: %s", ev.Call.Name, ev.Call.Args)))
			if ev.Outcome.Failed() {
				fmt.Println(toolStyle(fmt.Sprintf("工具调用失败: %s", ev.Outcome.Reason())))
			}
		})
		switch {
		case errors.Is(err, chat.ErrTooManyRounds):
			fmt.Println(abortStyle(fmt.Sprintf("工具调用次数超过%d次，请重新开始对话。", maxRounds)))
		case err != nil:
			fmt.Println(errorStyle(err.Error()))
		default:
			fmt.Println(answerStyle(answer))
		}
	}
}

// ask печатает приглашение на белой плашке и читает одну строку stdin.
func ask(in *bufio.Scanner, prompt string) (string, error) {
	fmt.Print(bannerStyle(prompt) + " ")
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(in.Text()), nil
}
