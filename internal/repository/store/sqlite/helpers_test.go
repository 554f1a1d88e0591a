package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/panel-sentinel/internal/db"
	sqlitestore "github.com/oshokin/panel-sentinel/internal/repository/store/sqlite"
)

// newTestStore returns a store over a private in-memory database with the production schema.
func newTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()

	conn, err := db.OpenMemory(context.Background(), "store_"+t.Name())
	require.NoError(t, err)

	w := db.NewWorker(conn)

	t.Cleanup(func() {
		w.Close()
		_ = conn.Close()
	})

	return sqlitestore.New(conn, w)
}
