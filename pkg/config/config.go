package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models  ModelsConfig  `yaml:"models"`
	Chat    ChatConfig    `yaml:"chat"`
	Backend BackendConfig `yaml:"backend"`
	Weather WeatherConfig `yaml:"weather"`
	Orch    OrchConfig    `yaml:"orch"`
	S3      S3Config      `yaml:"s3"`
	Logging LogConfig     `yaml:"logging"`
}

// ChatConfig — настройки диалогового цикла.
type ChatConfig struct {
	MaxToolRounds int `yaml:"max_tool_rounds"` // Лимит обращений к модели в рамках одного запроса
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ChatConfig) GetDefaults() ChatConfig {
	result := *c // Копируем текущие значения

	if result.MaxToolRounds == 0 {
		result.MaxToolRounds = 5
	}

	return result
}

// BackendConfig — настройки MCP бэкенда с инструментами.
type BackendConfig struct {
	ServerURL string `yaml:"server_url"` // Endpoint streamable HTTP транспорта
	Listen    string `yaml:"listen"`     // Адрес, на котором lworch-server поднимает бэкенд
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *BackendConfig) GetDefaults() BackendConfig {
	result := *c

	if result.ServerURL == "" {
		result.ServerURL = "http://localhost:8000/mcp"
	}
	if result.Listen == "" {
		result.Listen = ":8000"
	}

	return result
}

// WeatherConfig — настройки погодного сервиса (высокогорный API 高德).
type WeatherConfig struct {
	APIBase       string `yaml:"api_base"`       // URL weatherInfo endpoint
	APIKey        string `yaml:"api_key"`        // Поддерживает ${VAR}
	AdcodeDB      string `yaml:"adcode_db"`      // Путь к SQLite базе с кодами городов
	RateLimit     int    `yaml:"rate_limit"`     // Запросов в минуту
	BurstLimit    int    `yaml:"burst_limit"`    // Burst для rate limiter
	RetryAttempts int    `yaml:"retry_attempts"` // Количество retry попыток
	Timeout       string `yaml:"timeout"`        // Timeout для HTTP запросов (например, "30s")
	Listen        string `yaml:"listen"`         // Адрес standalone weather-server
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *WeatherConfig) GetDefaults() WeatherConfig {
	result := *c // Копируем текущие значения

	if result.APIBase == "" {
		result.APIBase = "https://restapi.amap.com/v3/weather/weatherInfo"
	}
	if result.AdcodeDB == "" {
		result.AdcodeDB = "adcode.db"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 100 // запросов в минуту
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}
	if result.Listen == "" {
		result.Listen = ":8001"
	}

	return result
}

// OrchConfig — настройки клиента OAuth-защищённого API площадок.
type OrchConfig struct {
	BaseURL       string `yaml:"base_url"`       // Базовый URL API (например, mock на localhost)
	RateLimit     int    `yaml:"rate_limit"`     // Запросов в минуту
	BurstLimit    int    `yaml:"burst_limit"`    // Burst для rate limiter
	RetryAttempts int    `yaml:"retry_attempts"` // Количество retry попыток
	Timeout       string `yaml:"timeout"`        // Timeout для HTTP запросов
	Listen        string `yaml:"listen"`         // Адрес, на котором поднимается orch-mock
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *OrchConfig) GetDefaults() OrchConfig {
	result := *c

	if result.BaseURL == "" {
		result.BaseURL = "http://localhost:9000"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 120 // запросов в минуту
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}
	if result.Listen == "" {
		result.Listen = ":9000"
	}

	return result
}

// LogConfig — настройки файлового логгера.
type LogConfig struct {
	Dir string `yaml:"dir"` // Директория для .log файлов
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *LogConfig) GetDefaults() LogConfig {
	result := *c

	if result.Dir == "" {
		result.Dir = "logs"
	}

	return result
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultChat string              `yaml:"default_chat"` // Алиас для чата по умолчанию (например, "glm-4.5")
	Definitions map[string]ModelDef `yaml:"definitions"`  // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "zai", "openai" и т.д.
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`  // Go умеет парсить строки вида "60s", "1m"
	BaseURL     string        `yaml:"base_url"` // Endpoint OpenAI-совместимого API
}

// S3Config — настройки объектного хранилища.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Models.DefaultChat != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultChat]; !ok {
			return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
		}
	}
	if c.Chat.MaxToolRounds < 0 {
		return fmt.Errorf("chat.max_tool_rounds must not be negative")
	}
	return nil
}

// Helper методы для удобства доступа (Syntactic sugar)

// GetChatModel возвращает конфигурацию модели по умолчанию или по имени.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}
