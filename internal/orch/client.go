// Package orch реализует серверную часть LightWAN Orch: REST клиент
// (OAuth token exchange и постраничный список сайтов), помощники даты
// и MCP сервер с инструментами для агента.
package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivmalkov/lworch-ai/pkg/config"
)

// ErrorType представляет тип ошибки при работе с Orch API.
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
		return "Orch отклонил учетные данные. Проверьте client_id и client_secret."
	case ErrTimeout:
		return "Превышено время ожидания. Orch сервер не отвечает или проблемы с сетью."
	case ErrNetwork:
		return "Orch сервер недоступен. Проверьте base_url и подключение к сети."
	case ErrRateLimit:
		return "Превышен лимит запросов к Orch API. Подождите перед следующей попыткой."
	default:
		return "Неизвестная ошибка при обращении к Orch API."
	}
}

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenResponse — ответ endpoint /oauth/token.
//
// Поля передаются модели без изменений: expires_in в секундах,
// scope — строка со списком разрешенных операций.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Sites — конверт постраничного ответа /openapi/v2/sites.
//
// Content остаётся слабо типизированным: состав полей сайта определяет
// upstream, клиент передает их модели как есть.
type Sites struct {
	TotalPages    int              `json:"total_pages"`
	TotalElements int              `json:"total_elements"`
	Content       []map[string]any `json:"content"`
}

// Client — клиент Orch REST API с retry и rate limiting.
type Client struct {
	baseURL       string
	httpClient    HTTPClient // Интерфейс вместо конкретного типа для testability
	limiter       *rate.Limiter
	retryAttempts int
}

// NewFromConfig создает новый клиент из конфигурации.
//
// Поля с нулевыми значениями используют дефолтные значения через GetDefaults().
func NewFromConfig(cfg config.OrchConfig) (*Client, error) {
	cfg = cfg.GetDefaults()

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid orch.timeout format: %w", err)
	}

	// rate_limit в запросах/минуту → rate.Limit в запросах/секунду
	ratePerSec := float64(cfg.RateLimit) / 60.0

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		retryAttempts: cfg.RetryAttempts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), cfg.BurstLimit),
	}, nil
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
func (c *Client) ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsg, "401") ||
		strings.Contains(errMsgLower, "unauthorized") ||
		strings.Contains(errMsgLower, "invalid_client") {
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

// Token обменивает client credentials на access token.
//
// Учетные данные уходят form-encoded на /oauth/token; при пустом grantType
// подставляется client_credentials. Отказ upstream (401 invalid_client и
// прочие) — ошибка с телом ответа: инструмент передаст её модели целиком.
func (c *Client) Token(ctx context.Context, clientID, clientSecret, grantType string) (*TokenResponse, error) {
	if grantType == "" {
		grantType = "client_credentials"
	}

	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("grant_type", grantType)

	body, err := c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("unmarshal token response: %w", err)
	}
	return &tok, nil
}

// SitesPage возвращает одну страницу списка сайтов.
//
// Нумерация страниц с нуля, как у upstream.
func (c *Client) SitesPage(ctx context.Context, token string, page, size int) (*Sites, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	reqURL := c.baseURL + "/openapi/v2/sites?" + params.Encode()

	body, err := c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var sites Sites
	if err := json.Unmarshal(body, &sites); err != nil {
		return nil, fmt.Errorf("unmarshal sites response: %w", err)
	}
	return &sites, nil
}

// AllSites собирает все страницы списка сайтов в один конверт.
//
// Цикл останавливается на последней реальной странице: страница
// за границей total_pages не запрашивается.
func (c *Client) AllSites(ctx context.Context, token string, size int) (*Sites, error) {
	all := &Sites{Content: []map[string]any{}}

	for page := 0; ; page++ {
		p, err := c.SitesPage(ctx, token, page, size)
		if err != nil {
			return nil, fmt.Errorf("sites page %d: %w", page, err)
		}

		all.Content = append(all.Content, p.Content...)
		all.TotalPages = p.TotalPages
		all.TotalElements = p.TotalElements

		if page >= p.TotalPages-1 {
			break
		}
	}
	return all, nil
}

// send выполняет запрос с retry логикой, возвращая тело успешного ответа.
//
// build вызывается на каждую попытку: тело POST запроса нельзя перечитать.
// Ретраим сетевые ошибки и 5xx; остальные не-2xx — фатальная ошибка с телом
// ответа, повтор не поможет.
func (c *Client) send(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for i := 0; i < c.retryAttempts; i++ {
		// Ждем разрешения от лимитера (блокирует горутину, если превысили лимит)
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
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

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("orch api error: status %d, body: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("orch api error: status %d, body: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded, last error: %v", lastErr)
}
