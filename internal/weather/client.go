// Package weather реализует погодную часть демо: клиент AMap weather API,
// geocoder город→adcode и MCP сервер с инструментами прогноза.
//
// Клиент устроен по образцу API SDK: rate limiting, retry и классификация
// ошибок живут здесь, а инструменты MCP сервера остаются тонкими обёртками.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivmalkov/lworch-ai/pkg/config"
)

// userAgent уходит в каждый запрос к AMap API.
const userAgent = "weather-app/1.0"

// ErrNoData возвращается, когда API ответил успешно, но данных по городу нет.
//
// Это не сбой: инструмент превращает его в сообщение для модели
// ("There is no ... data for this city"), а не в ошибку вызова.
var ErrNoData = errors.New("no weather data for this city")

// ErrorType представляет тип ошибки при работе с AMap API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrTimeout
	ErrNetwork
	ErrRateLimit
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrAuthFailed:
		return "Ключ AMap API недействителен или отсутствует. Проверьте AMAP_API_KEY в конфигурации."
	case ErrTimeout:
		return "Превышено время ожидания. Сервер AMap не отвечает или проблемы с сетью."
	case ErrNetwork:
		return "Сервер AMap недоступен. Проверьте подключение к интернету."
	case ErrRateLimit:
		return "Превышен лимит запросов к AMap API. Подождите перед следующей попыткой."
	default:
		return "Неизвестная ошибка при подключении к AMap API."
	}
}

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Live — текущая погода по одному городу (элемент lives в ответе AMap).
//
// AMap отдаёт все значения строками, включая температуру и влажность;
// структура сохраняет их как есть — клиент ничего не интерпретирует.
type Live struct {
	Province      string `json:"province"`
	City          string `json:"city"`
	Adcode        string `json:"adcode"`
	Weather       string `json:"weather"`
	Temperature   string `json:"temperature"`
	WindDirection string `json:"winddirection"`
	WindPower     string `json:"windpower"`
	Humidity      string `json:"humidity"`
	ReportTime    string `json:"reporttime"`
}

// Cast — прогноз на один день (элемент casts в ответе AMap).
type Cast struct {
	Date         string `json:"date"`
	Week         string `json:"week"`
	DayWeather   string `json:"dayweather"`
	NightWeather string `json:"nightweather"`
	DayTemp      string `json:"daytemp"`
	NightTemp    string `json:"nighttemp"`
	DayWind      string `json:"daywind"`
	NightWind    string `json:"nightwind"`
	DayPower     string `json:"daypower"`
	NightPower   string `json:"nightpower"`
}

// forecast — прогнозная запись по одному городу (элемент forecasts).
type forecast struct {
	City       string `json:"city"`
	Adcode     string `json:"adcode"`
	Province   string `json:"province"`
	ReportTime string `json:"reporttime"`
	Casts      []Cast `json:"casts"`
}

// apiResponse — конверт ответа weatherInfo endpoint.
//
// status "1" означает успех; при "0" info и infocode описывают причину
// (например, неверный ключ).
type apiResponse struct {
	Status    string     `json:"status"`
	Info      string     `json:"info"`
	Infocode  string     `json:"infocode"`
	Lives     []Live     `json:"lives"`
	Forecasts []forecast `json:"forecasts"`
}

// Client — клиент AMap weather API с retry и rate limiting.
type Client struct {
	apiBase       string
	apiKey        string
	httpClient    HTTPClient // Интерфейс вместо конкретного типа для testability
	limiter       *rate.Limiter
	retryAttempts int
}

// NewFromConfig создает новый клиент из конфигурации.
//
// Поля с нулевыми значениями используют дефолтные значения через GetDefaults().
// API ключ обязателен: без него AMap отвечает ошибкой на любой запрос.
func NewFromConfig(cfg config.WeatherConfig) (*Client, error) {
	cfg = cfg.GetDefaults()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("weather.api_key is required")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid weather.timeout format: %w", err)
	}

	// rate_limit в запросах/минуту → rate.Limit в запросах/секунду
	ratePerSec := float64(cfg.RateLimit) / 60.0

	return &Client{
		apiBase:       cfg.APIBase,
		apiKey:        cfg.APIKey,
		retryAttempts: cfg.RetryAttempts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), cfg.BurstLimit),
	}, nil
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
//
// Анализирует текст ошибки и возвращает соответствующий тип:
//   - ErrAuthFailed: ошибки 401, unauthorized, INVALID_USER_KEY
//   - ErrTimeout: timeout, deadline exceeded
//   - ErrNetwork: connection refused, no such host
//   - ErrRateLimit: ошибки 429, Too Many Requests
//   - ErrUnknown: все остальные ошибки
func (c *Client) ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsg, "401") ||
		strings.Contains(errMsgLower, "unauthorized") ||
		strings.Contains(errMsg, "INVALID_USER_KEY") {
		return ErrAuthFailed
	}

	if strings.Contains(errMsgLower, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") {
		return ErrTimeout
	}

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") {
		return ErrNetwork
	}

	if strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "Too Many Requests") {
		return ErrRateLimit
	}

	return ErrUnknown
}

// Realtime возвращает текущую погоду для города по его adcode.
//
// Пустой список lives при успешном ответе — ErrNoData: город известен
// geocoder'у, но API не отдал по нему наблюдений.
func (c *Client) Realtime(ctx context.Context, adcode string) (*Live, error) {
	resp, err := c.request(ctx, adcode, "base")
	if err != nil {
		return nil, err
	}

	if len(resp.Lives) == 0 {
		return nil, ErrNoData
	}
	return &resp.Lives[0], nil
}

// Forecast возвращает прогноз по дням для города по его adcode.
//
// Пустой список forecasts (или пустые casts) при успешном ответе — ErrNoData.
func (c *Client) Forecast(ctx context.Context, adcode string) ([]Cast, error) {
	resp, err := c.request(ctx, adcode, "all")
	if err != nil {
		return nil, err
	}

	if len(resp.Forecasts) == 0 || len(resp.Forecasts[0].Casts) == 0 {
		return nil, ErrNoData
	}
	return resp.Forecasts[0].Casts, nil
}

// request выполняет запрос к weatherInfo endpoint с retry логикой.
//
// extensions выбирает вид данных: "base" — текущая погода, "all" — прогноз.
// Ретраим сетевые ошибки и 5xx; ответы со status "0" не ретраим — это
// ошибка запроса (неверный ключ, неизвестный adcode), повтор не поможет.
func (c *Client) request(ctx context.Context, adcode, extensions string) (*apiResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("city", adcode)
	params.Set("extensions", extensions)
	params.Set("output", "JSON")

	reqURL := c.apiBase + "?" + params.Encode()

	var lastErr error

	for i := 0; i < c.retryAttempts; i++ {
		// Ждем разрешения от лимитера (блокирует горутину, если превысили лимит)
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("User-Agent", userAgent)
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue // Сетевая ошибка, пробуем еще
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read body: %w", readErr)
			continue
		}

		// 5xx ретраим, остальные не-200 — нет
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("amap api error: status %d, body: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("amap api error: status %d, body: %s", resp.StatusCode, string(body))
		}

		var decoded apiResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}

		if decoded.Status != "1" {
			return nil, fmt.Errorf("amap api error: %s (infocode %s)", decoded.Info, decoded.Infocode)
		}

		return &decoded, nil
	}

	return nil, fmt.Errorf("max retries exceeded, last error: %v", lastErr)
}
