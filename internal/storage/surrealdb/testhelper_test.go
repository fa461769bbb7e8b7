package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/carteira/internal/common"
	tcommon "github.com/bobmcallan/carteira/tests/common"
)

// testManager starts the shared SurrealDB container and returns a manager
// bound to a unique database per test.
func testManager(t *testing.T) *Manager {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping SurrealDB container test in -short mode")
	}

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(sc.Address())
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": "root",
		"pass": "root",
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	// subtests produce names like "Test/subtest"; SurrealDB rejects "/"
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbName := fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
	if err := db.Use(ctx, "carteira_test", dbName); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	m, err := newManager(ctx, db, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("init manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	return m
}
