package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "../../migrations"

func TestMigrationFiles(t *testing.T) {
	tests := []struct {
		file    string
		keyword string
	}{
		{file: "000001_create_refresh_history.up.sql", keyword: "CREATE TABLE"},
		{file: "000001_create_refresh_history.down.sql", keyword: "DROP TABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join(migrationsDir, tt.file))
			require.NoError(t, err)
			assert.Contains(t, string(content), tt.keyword)
			assert.Contains(t, string(content), "refresh_history")
		})
	}
}

func TestMigrationPairsComplete(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestMigrate_UnknownDirection(t *testing.T) {
	err := Migrate(PoolConfig{URL: "postgres://user@127.0.0.1:1/db"}, "file://"+migrationsDir, Direction("sideways"))
	// the ping fails first on a closed port, either way it must be an error
	assert.Error(t, err)
}
