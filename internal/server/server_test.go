package server

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/carteira/internal/common"
)

func TestNewServer_AppliesConfiguredTimeouts(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, func(c *common.Config) {
		c.Server.Host = "127.0.0.1"
		c.Server.Port = 9191
		c.Server.ReadTimeout = "7s"
		c.Server.WriteTimeout = "3m"
	})

	if srv.Addr() != "127.0.0.1:9191" {
		t.Errorf("Addr = %q, want 127.0.0.1:9191", srv.Addr())
	}
	if srv.server.ReadTimeout != 7*time.Second {
		t.Errorf("ReadTimeout = %v, want 7s", srv.server.ReadTimeout)
	}
	if srv.server.WriteTimeout != 3*time.Minute {
		t.Errorf("WriteTimeout = %v, want 3m", srv.server.WriteTimeout)
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown on an idle server failed: %v", err)
	}
}
