// Package mcpclient — клиент MCP бэкенда с инструментами.
//
// Оборачивает официальный go-sdk: устанавливает сессию, загружает каталог
// инструментов и prompts, транслирует каталог в формат Function Calling
// и сворачивает ошибки вызовов в Outcome для передачи модели.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ivmalkov/lworch-ai/pkg/llm"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// Descriptor — описание инструмента из каталога бэкенда.
//
// Properties хранит под-объект "properties" исходной JSON Schema байт-в-байт:
// клиент не интерпретирует схемы аргументов, только передаёт их модели.
type Descriptor struct {
	Name        string
	Description string
	Properties  map[string]json.RawMessage
}

// Client — MCP клиент поверх одного бэкенда.
//
// Жизненный цикл явный: New → Connect (или Dial) → вызовы → Close.
// Каталог инструментов загружается при подключении.
type Client struct {
	impl    *mcp.Client
	log     *utils.Logger
	session *mcp.ClientSession
	tools   []Descriptor
	prompts []string
}

// New создает клиента с указанным именем и версией реализации.
//
// Имя и версия уходят серверу в ходе initialize-рукопожатия.
func New(name, version string, log *utils.Logger) *Client {
	impl := mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, nil)
	return &Client{impl: impl, log: log}
}

// Connect устанавливает сессию по готовому транспорту и загружает каталог.
//
// При ошибке загрузки каталога сессия закрывается: клиент без каталога
// бесполезен для диалогового цикла.
func (c *Client) Connect(ctx context.Context, transport mcp.Transport) error {
	session, err := c.impl.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp connect: %w", err)
	}
	c.session = session

	if err := c.Refresh(ctx); err != nil {
		_ = session.Close()
		c.session = nil
		return err
	}

	c.log.Info("MCP session established",
		"tools", len(c.tools),
		"prompts", len(c.prompts))
	return nil
}

// Dial подключается к streamable HTTP endpoint бэкенда.
func (c *Client) Dial(ctx context.Context, endpoint string) error {
	return c.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint})
}

// Refresh перечитывает каталог инструментов и prompts с бэкенда.
//
// Ошибка перечисления инструментов фатальна: частичный каталог хуже
// отсутствующего. Отсутствие поддержки prompts у сервера — штатный случай.
func (c *Client) Refresh(ctx context.Context) error {
	if c.session == nil {
		return fmt.Errorf("not connected to MCP backend")
	}

	var tools []Descriptor
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}
		desc, err := toDescriptor(tool)
		if err != nil {
			return err
		}
		tools = append(tools, desc)
	}

	var prompts []string
	for prompt, err := range c.session.Prompts(ctx, nil) {
		if err != nil {
			c.log.Warn("prompt listing unavailable", "error", err)
			prompts = nil
			break
		}
		prompts = append(prompts, prompt.Name)
	}

	c.tools = tools
	c.prompts = prompts
	return nil
}

// toDescriptor нормализует схему инструмента через JSON roundtrip.
//
// InputSchema в SDK нетипизирован, поэтому кодируем его в JSON и вынимаем
// только под-объект properties. Некодируемая схема — ошибка каталога.
func toDescriptor(tool *mcp.Tool) (Descriptor, error) {
	desc := Descriptor{
		Name:        tool.Name,
		Description: tool.Description,
		Properties:  map[string]json.RawMessage{},
	}
	if tool.InputSchema == nil {
		return desc, nil
	}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return Descriptor{}, fmt.Errorf("tool %s: encode input schema: %w", tool.Name, err)
	}

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return Descriptor{}, fmt.Errorf("tool %s: decode input schema: %w", tool.Name, err)
	}
	if schema.Properties != nil {
		desc.Properties = schema.Properties
	}
	return desc, nil
}

// ModelTools возвращает каталог в формате Function Calling.
//
// Схема каждого инструмента сужается до {"type": "object", "properties": ...}:
// остальные поля backend-схемы (required, title и т.д.) модели не передаются.
func (c *Client) ModelTools() []llm.ToolDef {
	defs := make([]llm.ToolDef, len(c.tools))
	for i, tool := range c.tools {
		defs[i] = llm.ToolDef{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  llm.ObjectSchema(tool.Properties),
		}
	}
	return defs
}

// Invoke вызывает инструмент и сворачивает любой сбой в Outcome.
//
// Транспортные ошибки, неизвестные имена и IsError-результаты не прерывают
// диалог: причина уходит модели в tool-результате следующего раунда.
// Успешная полезная нагрузка — structured content, если сервер его вернул,
// иначе склеенный текст content-блоков.
func (c *Client) Invoke(ctx context.Context, name string, args map[string]any) Outcome {
	if c.session == nil {
		return Failure("not connected to MCP backend")
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		c.log.Error("tool call failed", "tool", name, "error", err)
		return Failure(err.Error())
	}

	if res.IsError {
		reason := contentText(res.Content)
		if reason == "" {
			reason = fmt.Sprintf("tool %s reported an error", name)
		}
		c.log.Warn("tool reported error", "tool", name, "reason", reason)
		return Failure(reason)
	}

	if res.StructuredContent != nil {
		return Success(res.StructuredContent)
	}
	return Success(contentText(res.Content))
}

// Prompt запрашивает именованный prompt у бэкенда и склеивает его сообщения.
func (c *Client) Prompt(ctx context.Context, name string, args map[string]string) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("not connected to MCP backend")
	}

	res, err := c.session.GetPrompt(ctx, &mcp.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("get prompt %s: %w", name, err)
	}

	var parts []string
	for _, msg := range res.Messages {
		if text, ok := msg.Content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Tools возвращает копию загруженного каталога инструментов.
func (c *Client) Tools() []Descriptor {
	return append([]Descriptor(nil), c.tools...)
}

// PromptNames возвращает имена prompts, объявленных бэкендом.
func (c *Client) PromptNames() []string {
	return append([]string(nil), c.prompts...)
}

// Close закрывает сессию. Безопасен при повторном вызове и без подключения.
func (c *Client) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// contentText склеивает текстовые content-блоки результата.
func contentText(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		if text, ok := item.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
