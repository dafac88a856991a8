// Package dbtest opens isolated in-memory SQLite databases carrying the escrow schema.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db"
)

// Open returns a client bound to a fresh database. A single connection is kept so
// concurrent units of work serialize the way row locks would serialize them.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := "file:escrow_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.EnsureSQLiteSchema(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db.NewFromConn(conn)
}
