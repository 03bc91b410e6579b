// Базовые типы - универсальный язык общения с модельным эндпоинтом.
package llm

// Role — роль сообщения в истории диалога.
type Role string

// Константы ролей
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message — одно сообщение истории.
//
// История диалога — упорядоченный append-only срез таких сообщений.
// На каждом вызове модели срез уходит целиком: модель stateless и
// между вызовами ничего не помнит.
type Message struct {
	Role    Role
	Content string

	// ToolCalls заполнен только для assistant-сообщений, в которых
	// модель запросила вызов инструментов.
	ToolCalls []ToolCall

	// ToolCallID заполнен только для tool-сообщений: идентификатор
	// запроса, ответом на который является это сообщение.
	ToolCallID string
}

// ToolCall — запрос модели на вызов одного инструмента.
type ToolCall struct {
	ID   string
	Name string
	// Args — сериализованный JSON-объект аргументов, ровно в том виде,
	// в котором его прислала модель. Декодируется перед диспетчеризацией.
	Args string
}

// UserText строит пользовательское сообщение.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// SystemText строит системное сообщение (инструкции сессии).
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// AssistantText строит текстовый ответ модели.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResult строит парный ответ на запрос инструмента.
// callID должен совпадать с ToolCall.ID исходного запроса,
// payload — сериализованный результат (или {"error": ...}).
func ToolResult(callID, payload string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: payload}
}
