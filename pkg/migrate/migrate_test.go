package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"migrations/001_create_runs.up.sql":      {Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
	"migrations/001_create_runs.down.sql":    {Data: []byte("DROP TABLE runs;")},
	"migrations/002_create_windows.up.sql":   {Data: []byte("CREATE TABLE windows (run_id TEXT, idx INTEGER);")},
	"migrations/002_create_windows.down.sql": {Data: []byte("DROP TABLE windows;")},
	"migrations/README.md":                   {Data: []byte("not a migration")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n))
	return n == 1
}

func TestMigrations(t *testing.T) {
	migrations, err := NewFSSource(testMigrations, "migrations", "", SQLite).Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create runs", migrations[0].Name)
	assert.Contains(t, migrations[0].Up, "CREATE TABLE runs")
	assert.Contains(t, migrations[1].Down, "DROP TABLE windows")

	dup := fstest.MapFS{
		"m/001_a.up.sql":     {Data: []byte("SELECT 1;")},
		"m/1_a_again.up.sql": {Data: []byte("SELECT 2;")},
	}
	_, err = NewFSSource(dup, "m", "", SQLite).Migrations()
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	migrations := []Migration{
		{Version: 5, Name: "e", Up: "up5", Down: "down5"},
		{Version: 1, Name: "a", Up: "up1", Down: "down1"},
		{Version: 3, Name: "c", Up: "up3", Down: "down3"},
	}
	type step struct {
		version int
		dir     Direction
		after   int
	}

	tests := []struct {
		name    string
		current int
		target  int
		want    []step
		wantErr bool
	}{
		{"latest from empty", 0, Latest, []step{{1, DirectionUp, 1}, {3, DirectionUp, 3}, {5, DirectionUp, 5}}, false},
		{"partial up", 1, 3, []step{{3, DirectionUp, 3}}, false},
		{"already there", 5, Latest, nil, false},
		{"down keeps numbering gaps", 5, 1, []step{{5, DirectionDown, 3}, {3, DirectionDown, 1}}, false},
		{"down to empty", 3, 0, []step{{3, DirectionDown, 1}, {1, DirectionDown, 0}}, false},
		{"unknown target", 0, 4, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := Plan(migrations, tt.current, tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownVersion)
				return
			}
			require.NoError(t, err)
			var got []step
			for _, s := range steps {
				got = append(got, step{s.Migration.Version, s.Direction, s.After})
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Plan([]Migration{{Version: 1, Up: "up1"}}, 1, 0)
	assert.Error(t, err, "a down step without SQL cannot be planned")
}

func TestMigrator(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	m := NewMigrator(db, NewFSSource(testMigrations, "migrations", "", SQLite), zaptest.NewLogger(t).Sugar())

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 2, st.Latest)
	assert.Len(t, st.Pending, 2)
	assert.False(t, st.UpToDate())

	require.NoError(t, m.Up(ctx))
	st, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Current)
	assert.True(t, st.UpToDate())
	assert.True(t, tableExists(t, db, "windows"))

	require.NoError(t, m.Up(ctx), "re-running is a no-op")

	require.NoError(t, m.Down(ctx, 1))
	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.False(t, tableExists(t, db, "windows"))
	assert.True(t, tableExists(t, db, "runs"))

	require.NoError(t, m.To(ctx, 0))
	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.False(t, tableExists(t, db, "runs"))

	assert.Error(t, m.Down(ctx, 0), "cannot roll back below the current version")
}

func TestMigratorStopsOnFailedStep(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	broken := fstest.MapFS{
		"m/001_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"m/002_broken.up.sql": {Data: []byte("CREATE TABLE nope (")},
	}
	m := NewMigrator(db, NewFSSource(broken, "m", "", SQLite), nil)

	require.Error(t, m.Up(ctx))
	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.True(t, tableExists(t, db, "ok"))
}

func TestMigratorHonorsCancelledContext(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSSource(testMigrations, "migrations", "", SQLite), nil)
	require.NoError(t, m.To(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, m.Up(ctx))
	assert.False(t, tableExists(t, db, "windows"))
}
