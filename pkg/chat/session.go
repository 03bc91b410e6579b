// Package chat реализует многошаговый диалоговый цикл с вызовом инструментов.
//
// Session ведёт историю диалога и гоняет цикл: модель → tool-вызовы →
// результаты → снова модель, пока модель не вернёт финальный текст или
// не исчерпается лимит обращений к ней в рамках одного запроса.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ivmalkov/lworch-ai/pkg/llm"
	"github.com/ivmalkov/lworch-ai/pkg/mcpclient"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// defaultMaxToolRounds — лимит обращений к модели на один пользовательский запрос.
const defaultMaxToolRounds = 5

// ErrTooManyRounds возвращается, когда модель продолжает запрашивать
// инструменты после исчерпания лимита раундов. История диалога при этом
// сохраняется: следующий запрос продолжит с накопленного состояния.
var ErrTooManyRounds = errors.New("tool call limit reached")

// Backend — то, что циклу нужно от MCP клиента.
type Backend interface {
	// ModelTools возвращает каталог инструментов в формате Function Calling.
	ModelTools() []llm.ToolDef
	// Invoke вызывает инструмент; любой сбой свёрнут в Outcome.
	Invoke(ctx context.Context, name string, args map[string]any) mcpclient.Outcome
	// Prompt запрашивает именованный prompt у бэкенда.
	Prompt(ctx context.Context, name string, args map[string]string) (string, error)
}

// Config — настройки диалогового цикла.
type Config struct {
	MaxToolRounds int // 0 означает дефолтный лимит
}

// RoundEvent — один выполненный tool-вызов внутри цикла.
//
// Передается наблюдателю сразу после вызова: UI показывает ход работы,
// не дожидаясь финального ответа.
type RoundEvent struct {
	Round   int
	Call    llm.ToolCall
	Outcome mcpclient.Outcome
}

// Session — диалоговая сессия с моделью и одним MCP бэкендом.
//
// Не потокобезопасна: одна сессия обслуживает один REPL.
type Session struct {
	provider     llm.Provider
	backend      Backend
	log          *utils.Logger
	maxRounds    int
	instructions string
	history      []llm.Message
}

// NewSession создает сессию поверх провайдера модели и бэкенда инструментов.
func NewSession(provider llm.Provider, backend Backend, cfg Config, log *utils.Logger) *Session {
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}
	return &Session{
		provider:  provider,
		backend:   backend,
		log:       log,
		maxRounds: maxRounds,
	}
}

// SetInstructions устанавливает системные инструкции сессии.
//
// Инструкции не хранятся в истории: они добавляются первым сообщением
// в каждый запрос к модели и могут быть заменены в любой момент.
func (s *Session) SetInstructions(text string) {
	s.instructions = text
}

// Instructions возвращает текущие системные инструкции.
func (s *Session) Instructions() string {
	return s.instructions
}

// History возвращает копию истории диалога.
func (s *Session) History() []llm.Message {
	return append([]llm.Message(nil), s.history...)
}

// Bootstrap выполняет рукопожатие с бэкендом площадок: вызывает
// get_access_token, затем запрашивает initial_instruction prompt с токеном
// и scope и устанавливает его как инструкции сессии.
//
// Возвращает полученный токен и scope для отображения пользователю.
func (s *Session) Bootstrap(ctx context.Context, clientID, clientSecret string) (token, scope string, err error) {
	outcome := s.backend.Invoke(ctx, "get_access_token", map[string]any{
		"client_id":     clientID,
		"client_secret": clientSecret,
	})
	if outcome.Failed() {
		return "", "", fmt.Errorf("get_access_token: %s", outcome.Reason())
	}

	var grant struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := outcome.Decode(&grant); err != nil {
		return "", "", fmt.Errorf("decode access token: %w", err)
	}
	if grant.AccessToken == "" {
		return "", "", fmt.Errorf("backend returned empty access token")
	}

	instructions, err := s.backend.Prompt(ctx, "initial_instruction", map[string]string{
		"access_token": grant.AccessToken,
		"scope":        grant.Scope,
	})
	if err != nil {
		return "", "", err
	}
	s.SetInstructions(instructions)

	s.log.Info("session bootstrapped", "scope", grant.Scope)
	return grant.AccessToken, grant.Scope, nil
}

// RunTurn обрабатывает один пользовательский запрос.
//
// Пустой query не добавляет сообщения в историю: так продолжается
// обработка после прерванного цикла. Каждый tool-вызов отражается
// через onRound (может быть nil). Возвращает финальный текст модели.
//
// Если лимит раундов исчерпан, а модель всё ещё просит инструменты,
// возвращается ErrTooManyRounds; история остаётся накопленной.
func (s *Session) RunTurn(ctx context.Context, query string, onRound func(RoundEvent)) (string, error) {
	if strings.TrimSpace(query) != "" {
		s.history = append(s.history, llm.UserText(query))
	}

	tools := s.backend.ModelTools()

	for round := 1; round <= s.maxRounds; round++ {
		reply, err := s.provider.Generate(ctx, s.messagesForModel(), tools)
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}

		// Нет tool-вызовов — это финальный ответ
		if len(reply.ToolCalls) == 0 {
			s.history = append(s.history, llm.AssistantText(reply.Content))
			return reply.Content, nil
		}

		// Assistant-сообщение с вызовами попадает в историю как есть,
		// следом — результат каждого вызова под его ID. Пары
		// вызов/результат обязаны сходиться, иначе API отклонит историю.
		s.history = append(s.history, reply)
		for _, call := range reply.ToolCalls {
			outcome := s.executeCall(ctx, call)
			if onRound != nil {
				onRound(RoundEvent{Round: round, Call: call, Outcome: outcome})
			}
			s.history = append(s.history, llm.ToolResult(call.ID, outcome.JSON()))
		}
	}

	return "", fmt.Errorf("no final answer after %d model calls: %w", s.maxRounds, ErrTooManyRounds)
}

// messagesForModel собирает сообщения для запроса: инструкции + история.
func (s *Session) messagesForModel() []llm.Message {
	if s.instructions == "" {
		return s.history
	}
	msgs := make([]llm.Message, 0, len(s.history)+1)
	msgs = append(msgs, llm.SystemText(s.instructions))
	return append(msgs, s.history...)
}

// executeCall декодирует аргументы вызова и выполняет его через бэкенд.
//
// Модели иногда заворачивают JSON аргументов в markdown-блок — обёртка
// снимается перед декодированием. Если аргументы всё равно не парсятся,
// вызов не выполняется: модель получает отказ с причиной и может
// повторить вызов с исправленными аргументами.
func (s *Session) executeCall(ctx context.Context, call llm.ToolCall) mcpclient.Outcome {
	args := map[string]any{}
	if strings.TrimSpace(call.Args) != "" {
		cleaned := utils.CleanJsonBlock(call.Args)
		if err := json.Unmarshal([]byte(cleaned), &args); err != nil {
			s.log.Warn("tool arguments are not valid JSON",
				"tool", call.Name,
				"args", call.Args,
				"error", err)
			return mcpclient.Failure(fmt.Sprintf("arguments are not valid JSON: %v", err))
		}
	}

	s.log.Info("calling tool", "tool", call.Name, "args", call.Args)
	return s.backend.Invoke(ctx, call.Name, args)
}
