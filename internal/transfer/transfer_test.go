package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/assetwatch/internal/store"
)

const importDoc = `[
  {
    "id": "r1",
    "name": "edge-1",
    "provider": "hetzner",
    "category": "VPS",
    "currency": "EUR",
    "cost": "4.5",
    "billingCycle": "monthly",
    "expiryDate": "2025-06-01",
    "notificationSettings": {"enabled": true, "useGlobal": true, "reminderDays": 30, "channels": {"telegram": false, "email": true, "webhook": false}}
  },
  {
    "name": "example.org",
    "category": "DOMAIN",
    "currency": "USD",
    "cost": "10",
    "billingCycle": "yearly",
    "notificationSettings": {"enabled": false, "useGlobal": false, "lastNotified": "2025-05-01"}
  },
  {"name": "", "category": "VPS", "cost": "1"}
]`

func openRepo(t *testing.T) *store.SQLiteRepo {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func notificationJSON(t *testing.T, v any) []string {
	t.Helper()
	var docs []map[string]json.RawMessage
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &docs))
	var out []string
	for _, d := range docs {
		out = append(out, string(d["notificationSettings"]))
	}
	return out
}

func TestImportExport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	env, err := Decode(strings.NewReader(importDoc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, env.Resources, 3)

	rep, err := Import(ctx, repo, env.Resources)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, 2, rep.Errors[0].Index)

	out, err := Export(ctx, repo, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, out.Resources, 2)
	assert.Equal(t, "r1", out.Resources[0].ID)
	assert.NotEmpty(t, out.Resources[1].ID)

	// notificationSettings survive unchanged, including ignored overrides
	// under useGlobal.
	assert.Equal(t, notificationJSON(t, env.Resources[:2]), notificationJSON(t, out.Resources))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, out, FormatJSON))
	again, err := Decode(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, notificationJSON(t, out.Resources), notificationJSON(t, again.Resources))
}

func TestYAMLRoundTrip(t *testing.T) {
	env, err := Decode(strings.NewReader(importDoc), FormatJSON)
	require.NoError(t, err)
	env.Resources = env.Resources[:2]

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, env, FormatYAML))
	assert.Contains(t, buf.String(), "useGlobal: true")

	back, err := Decode(&buf, FormatYAML)
	require.NoError(t, err)
	require.Len(t, back.Resources, 2)
	assert.Equal(t, "4.5", back.Resources[0].Cost.String())
	assert.Equal(t, notificationJSON(t, env.Resources), notificationJSON(t, back.Resources))
}

func TestDecode_RejectsNewerVersion(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"version": 99, "resources": []}`), FormatJSON)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
