package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Site — один сайт синтетического парка.
type Site struct {
	SiteID        string `json:"site_id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	Region        string `json:"region"`
	BandwidthMbps int    `json:"bandwidth_mbps"`
}

// mock — состояние мока: принимаемые учетные данные, выданные токены
// и парк сайтов.
type mock struct {
	clientID     string
	clientSecret string
	scope        string
	expiresIn    int

	mu     sync.Mutex
	tokens map[string]time.Time // token → срок годности

	sites []Site
}

func newMock(clientID, clientSecret, scope string, siteCount int) *mock {
	return &mock{
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		expiresIn:    7200,
		tokens:       map[string]time.Time{},
		sites:        generateSites(siteCount),
	}
}

// generateSites строит детерминированный парк: одинаковый размер —
// одинаковые сайты, удобно для повторяемых демо и тестов.
func generateSites(n int) []Site {
	regions := []string{"华东", "华北", "华南", "西南", "华中"}
	statuses := []string{"up", "up", "up", "degraded", "down"} // живых больше
	bandwidths := []int{10, 20, 50, 100, 200, 500}

	sites := make([]Site, n)
	for i := 0; i < n; i++ {
		sites[i] = Site{
			SiteID:        fmt.Sprintf("site-%04d", i+1),
			Name:          fmt.Sprintf("LightWAN 站点 %d", i+1),
			Status:        statuses[i%len(statuses)],
			Region:        regions[i%len(regions)],
			BandwidthMbps: bandwidths[i%len(bandwidths)],
		}
	}
	return sites
}

func (m *mock) issueToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	m.mu.Lock()
	m.tokens[token] = time.Now().Add(time.Duration(m.expiresIn) * time.Second)
	m.mu.Unlock()
	return token, nil
}

func (m *mock) tokenValid(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.tokens[token]
	return ok && time.Now().Before(exp)
}

// handleToken реализует POST /oauth/token (grant client_credentials).
func (m *mock) handleToken(c *gin.Context) {
	grantType := c.PostForm("grant_type")
	if grantType != "client_credentials" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}

	if c.PostForm("client_id") != m.clientID || c.PostForm("client_secret") != m.clientSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}

	token, err := m.issueToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   m.expiresIn,
		"scope":        m.scope,
	})
}

// handleSites реализует GET /openapi/v2/sites: Bearer auth обязателен,
// выборка постраничная, нумерация с нуля.
func (m *mock) handleSites(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || !m.tokenValid(token) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}

	totalPages := (len(m.sites) + size - 1) / size
	start := page * size
	end := start + size
	if start > len(m.sites) {
		start = len(m.sites)
	}
	if end > len(m.sites) {
		end = len(m.sites)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_pages":    totalPages,
		"total_elements": len(m.sites),
		"content":        m.sites[start:end],
	})
}

// router собирает gin engine с обоими endpoint.
func (m *mock) router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.POST("/oauth/token", m.handleToken)
	engine.GET("/openapi/v2/sites", m.handleSites)
	return engine
}
