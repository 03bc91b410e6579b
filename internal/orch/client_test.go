package orch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ivmalkov/lworch-ai/pkg/config"
)

// newTestClient создает клиента, смотрящего на тестовый HTTP сервер.
func newTestClient(ts *httptest.Server, attempts int) *Client {
	return &Client{
		baseURL:       ts.URL,
		httpClient:    ts.Client(),
		limiter:       rate.NewLimiter(rate.Inf, 1),
		retryAttempts: attempts,
	}
}

// Учетные данные уходят form-encoded, поля ответа доходят без изменений.
func TestTokenExchange(t *testing.T) {
	var gotPath, gotContentType, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		fmt.Fprint(w, `{"access_token": "tok-123", "token_type": "bearer", "expires_in": 7200, "scope": "customer:read customer:write"}`)
	}))
	defer ts.Close()

	tok, err := newTestClient(ts, 3).Token(context.Background(), "id-1", "secret-1", "")
	require.NoError(t, err)
	require.Equal(t, "tok-123", tok.AccessToken)
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, 7200, tok.ExpiresIn)
	require.Equal(t, "customer:read customer:write", tok.Scope)

	require.Equal(t, "POST /oauth/token", gotPath)
	require.Equal(t, "application/x-www-form-urlencoded", gotContentType)

	form, err := url.ParseQuery(gotBody)
	require.NoError(t, err)
	require.Equal(t, "id-1", form.Get("client_id"))
	require.Equal(t, "secret-1", form.Get("client_secret"))
	require.Equal(t, "client_credentials", form.Get("grant_type"), "пустой grant_type заменяется дефолтом")
}

func TestTokenRejected(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid_client"}`)
	}))
	defer ts.Close()

	client := newTestClient(ts, 3)
	_, err := client.Token(context.Background(), "bad", "bad", "client_credentials")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid_client")
	require.Contains(t, err.Error(), "401")
	require.Equal(t, 1, calls, "4xx не ретраится")
	require.Equal(t, ErrAuthFailed, client.ClassifyError(err))
}

func TestSitesPage(t *testing.T) {
	var gotAuth string
	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"total_pages": 3, "total_elements": 11, "content": [{"site_id": "s-10", "name": "HQ"}]}`)
	}))
	defer ts.Close()

	sites, err := newTestClient(ts, 3).SitesPage(context.Background(), "tok-1", 2, 5)
	require.NoError(t, err)
	require.Equal(t, 3, sites.TotalPages)
	require.Equal(t, 11, sites.TotalElements)
	require.Len(t, sites.Content, 1)
	require.Equal(t, "s-10", sites.Content[0]["site_id"])

	require.Equal(t, "Bearer tok-1", gotAuth)
	require.Equal(t, "2", gotQuery.Get("page"))
	require.Equal(t, "5", gotQuery.Get("size"))
}

// Полная выборка обходит каждую страницу ровно один раз и не запрашивает
// страницу за границей total_pages.
func TestAllSites(t *testing.T) {
	dataset := []string{"s-0", "s-1", "s-2", "s-3", "s-4"}
	size := 2 // 3 страницы: 2+2+1

	var pages []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages = append(pages, r.URL.Query().Get("page"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		start := page * size
		end := start + size
		if end > len(dataset) {
			end = len(dataset)
		}
		content := ""
		for i := start; i < end; i++ {
			if content != "" {
				content += ","
			}
			content += fmt.Sprintf(`{"site_id": "%s"}`, dataset[i])
		}
		fmt.Fprintf(w, `{"total_pages": 3, "total_elements": 5, "content": [%s]}`, content)
	}))
	defer ts.Close()

	sites, err := newTestClient(ts, 3).AllSites(context.Background(), "tok-1", size)
	require.NoError(t, err)
	require.Equal(t, 3, sites.TotalPages)
	require.Equal(t, 5, sites.TotalElements)
	require.Len(t, sites.Content, 5)
	require.Equal(t, "s-4", sites.Content[4]["site_id"])

	require.Equal(t, []string{"0", "1", "2"}, pages)
}

func TestAllSitesSinglePage(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"total_pages": 1, "total_elements": 2, "content": [{"site_id": "a"}, {"site_id": "b"}]}`)
	}))
	defer ts.Close()

	sites, err := newTestClient(ts, 3).AllSites(context.Background(), "tok-1", 20)
	require.NoError(t, err)
	require.Len(t, sites.Content, 2)
	require.Equal(t, 1, calls)
}

func TestSendRetriesServerErrors(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"access_token": "tok-retry", "token_type": "bearer", "expires_in": 60, "scope": "s"}`)
	}))
	defer ts.Close()

	tok, err := newTestClient(ts, 3).Token(context.Background(), "id", "secret", "client_credentials")
	require.NoError(t, err)
	require.Equal(t, "tok-retry", tok.AccessToken)
	require.Equal(t, 2, calls)
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(config.OrchConfig{Timeout: "soon"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")

	client, err := NewFromConfig(config.OrchConfig{BaseURL: "http://orch.local/"})
	require.NoError(t, err)
	require.Equal(t, "http://orch.local", client.baseURL, "хвостовой слэш снимается")
	require.Equal(t, 3, client.retryAttempts)
}
