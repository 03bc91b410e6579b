// Orch-mock — локальный мок LightWAN Orch REST API.
//
// Поднимает ровно два endpoint, которых достаточно для демо без доступа
// к реальному Orch:
//   - POST /oauth/token: client credentials → bearer token
//   - GET /openapi/v2/sites: постраничный список синтетического парка
//
// Использование:
//   ./orch-mock -listen :9000
//   ./orch-mock -client-id demo-client -client-secret demo-secret -sites 57
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// CLI flags
var (
	flagListen       = flag.String("listen", ":9000", "Listen address")
	flagClientID     = flag.String("client-id", "demo-client", "Accepted client_id")
	flagClientSecret = flag.String("client-secret", "demo-secret", "Accepted client_secret")
	flagScope        = flag.String("scope", "customer:read customer:write", "Scope string returned with tokens")
	flagSites        = flag.Int("sites", 57, "Number of synthetic sites")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	m := newMock(*flagClientID, *flagClientSecret, *flagScope, *flagSites)

	srv := &http.Server{Addr: *flagListen, Handler: m.router()}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("orch-mock listening on %s (%d sites)\n", *flagListen, *flagSites)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	fmt.Println("orch-mock stopped")
	return <-errCh
}
