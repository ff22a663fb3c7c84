package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store/sqlite"
)

func setupStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// seed creates one domain with one config holding n versions.
func seed(t *testing.T, s *sqlite.SQLiteStore, n int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.CreateDomain(ctx, &model.Domain{ID: "dom_1", Slug: "acme", CreatedAt: now}))
	require.NoError(t, s.CreateConfig(ctx, &model.Config{ID: "cfg_1", DomainID: "dom_1", Key: "timeout", CreatedAt: now}))
	for i := 1; i <= n; i++ {
		v := &model.Version{
			ID:        fmt.Sprintf("ver_seed_%d", i),
			ConfigID:  "cfg_1",
			Value:     model.IntValue(int64(i * 10)),
			CreatedAt: now,
		}
		require.NoError(t, s.CreateVersion(ctx, v))
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	s := setupStore(t)
	var buf bytes.Buffer
	require.NoError(t, ExportJSONL(context.Background(), s, &buf))

	lines := nonEmptyLines(buf.String())
	require.Len(t, lines, 1, "header only")

	var h Header
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &h))
	require.Equal(t, FormatVersion, h.Version)
	require.Equal(t, "header", h.Type)
	require.Zero(t, h.DomainCount+h.ConfigCount+h.VersionCount)
}

func TestExportJSONL_Registry(t *testing.T) {
	s := setupStore(t)
	seed(t, s, 3)

	var buf bytes.Buffer
	require.NoError(t, ExportJSONL(context.Background(), s, &buf))
	lines := nonEmptyLines(buf.String())
	require.Len(t, lines, 1+1+1+3)

	var h Header
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &h))
	require.Equal(t, 1, h.DomainCount)
	require.Equal(t, 1, h.ConfigCount)
	require.Equal(t, 3, h.VersionCount)

	types := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		var r struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		types = append(types, r.Type)
	}
	require.Equal(t, []string{"domain", "config", "version", "version", "version"}, types)

	// Versions are written oldest first and keep their type tag.
	for i, line := range lines[3:] {
		var r struct {
			Data VersionRecord `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		require.Equal(t, int64(i+1), r.Data.Index)
		require.Equal(t, model.TypeInteger, r.Data.Type)

		v, err := r.Data.Version()
		require.NoError(t, err)
		require.True(t, v.Value.Equal(model.IntValue(int64((i+1)*10))))
	}
}

func TestExportJSONL_PagesPastBatch(t *testing.T) {
	s := setupStore(t)
	seed(t, s, 0)
	ctx := context.Background()
	for i := 0; i < batchSize+5; i++ {
		require.NoError(t, s.CreateVersion(ctx, &model.Version{
			ID:        fmt.Sprintf("ver_bulk_%d", i),
			ConfigID:  "cfg_1",
			Value:     model.BoolValue(i%2 == 0),
			CreatedAt: time.Now().UTC(),
		}))
	}

	var buf bytes.Buffer
	require.NoError(t, ExportJSONL(ctx, s, &buf))
	var h Header
	require.NoError(t, json.Unmarshal([]byte(nonEmptyLines(buf.String())[0]), &h))
	require.Equal(t, batchSize+5, h.VersionCount)
}

func TestVersionRecord_BadType(t *testing.T) {
	_, err := VersionRecord{Type: "decimal", Value: "1.0"}.Version()
	require.Error(t, err)
}
