package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/logging"
)

func buildTestRouter(t *testing.T) *Router {
	t.Helper()
	cfg := config.Default()
	cfg.Web.Enabled = false
	logger, err := logging.New(logging.Config{Level: "error", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("logging.New error: %v", err)
	}
	router, err := Build(Options{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return router
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := Build(Options{}); err == nil {
		t.Fatalf("expected error without config")
	}
}

func TestForwardingHeadersAreNotTrusted(t *testing.T) {
	router := buildTestRouter(t)
	router.API.GET("/whoami", func(c *gin.Context) {
		RespondSuccess(c, 200, gin.H{"ip": c.ClientIP()}, "")
	})

	server := httptest.NewServer(router.Engine)
	t.Cleanup(server.Close)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/whoami", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.99")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	ip := envelope["data"].(map[string]any)["ip"].(string)
	if ip == "203.0.113.99" {
		t.Fatalf("spoofed forwarding header must be ignored")
	}
	if !strings.HasPrefix(ip, "127.0.0.1") && ip != "::1" {
		t.Fatalf("expected loopback client ip, got %s", ip)
	}
}
