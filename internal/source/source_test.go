package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2025-03-31", "2025/03/31", "2025-03-31T23:30:00-05:00", "2025-03-31 08:15:00", "03/31/2025"} {
		got, ok := ParseTimestamp(s)
		require.True(t, ok, s)
		assert.Equal(t, want, got, s)
	}

	for _, s := range []string{"", "  ", "not a date", "2025-13-01"} {
		_, ok := ParseTimestamp(s)
		assert.False(t, ok, s)
	}
}

func TestFileLoaderCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "usage.csv", "\ufeffUsage Date,Device,Account,Number Of Runs,Region\n"+
		"2025-01-05,D1,A1,\"1,200\",EU\n"+
		"2025-01-20,D2,,3,\n"+
		"garbage,D3,A3,oops,US\n")

	loader := NewFileLoader(dir, "")
	rs, err := loader.Load(context.Background(), schema.Usage)
	require.NoError(t, err)

	assert.Equal(t, schema.Usage, rs.Category)
	require.Equal(t, 3, rs.Len())
	assert.NoError(t, rs.Require(schema.TimeColumn, schema.ColUsageDate))
	assert.NoError(t, rs.Require(schema.NumberColumn, schema.ColRuns))
	assert.NoError(t, rs.Require(schema.CategoryColumn, schema.ColAccount, "Region"), "undeclared columns are categorical")

	runs, ok := rs.Records[0].Number(schema.ColRuns)
	require.True(t, ok)
	assert.Equal(t, 1200.0, runs)

	_, ok = rs.Records[1].Label(schema.ColAccount)
	assert.False(t, ok, "empty cell is null")

	_, ok = rs.Records[2].Time(schema.ColUsageDate)
	assert.False(t, ok, "unparseable date is null")
	_, ok = rs.Records[2].Number(schema.ColRuns)
	assert.False(t, ok, "unparseable number is null")
}

func TestFileLoaderJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "complaints.json", `[
		{"Complaint Created Date": "2025-01-02", "Completed Date": "2025-02-01", "Device Type": "Scanner"},
		{"Complaint Created Date": "2025-01-03", "Completed Date": null, "Device Type": 7}
	]`)

	rs, err := NewFileLoader(dir, schema.JSONSource).Load(context.Background(), schema.Complaints)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	done, ok := rs.Records[0].Time(schema.ColCompleted)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), done)

	_, ok = rs.Records[1].Time(schema.ColCompleted)
	assert.False(t, ok)
	label, _ := rs.Records[1].Label(schema.ColDeviceType)
	assert.Equal(t, "7", label)

	assert.ErrorIs(t, rs.Require(schema.TimeColumn, schema.ColComplaintReceived), schema.ErrMissingColumn)
}

func TestFileLoaderEmptyJSONDeclaresColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "training.json", `[]`)

	rs, err := NewFileLoader(dir, schema.JSONSource).Load(context.Background(), schema.Training)
	require.NoError(t, err)
	assert.Zero(t, rs.Len())
	assert.NoError(t, rs.Require(schema.TimeColumn, schema.ColDueDate, schema.ColCompleted))
}

func TestFileLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	loader := NewFileLoader(dir, schema.CSVSource)
	ctx := context.Background()

	_, err := loader.Load(ctx, schema.Audits)
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, dir, "audits.csv", "")
	_, err = loader.Load(ctx, schema.Audits)
	assert.ErrorContains(t, err, "no header row")

	writeFile(t, dir, "tickets.csv", "a,b\n1,2\n")
	_, err = loader.Load(ctx, "tickets")
	assert.ErrorIs(t, err, schema.ErrUnknownCategory)

	writeFile(t, dir, "capas.csv", "Status\n\"unterminated\n")
	_, err = loader.Load(ctx, schema.CAPAs)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = loader.Load(cancelled, schema.CAPAs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLoaderFingerprint(t *testing.T) {
	dir := t.TempDir()
	loader := NewFileLoader(dir, schema.CSVSource)
	ctx := context.Background()

	_, err := loader.Fingerprint(ctx, schema.Audits)
	assert.Error(t, err)

	writeFile(t, dir, "audits.csv", "Planned Start Date\n2025-01-01\n")
	first, err := loader.Fingerprint(ctx, schema.Audits)
	require.NoError(t, err)

	writeFile(t, dir, "audits.csv", "Planned Start Date\n2025-01-01\n2025-02-01\n")
	second, err := loader.Fingerprint(ctx, schema.Audits)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.True(t, filepath.IsAbs(loader.Location()))
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/export/training":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"Due Date": "2025-01-31", "Completed Date": "2025-01-15", "User": "ann"}]`))
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	loader := NewHTTPLoader(srv.URL+"/export", 5*time.Second)
	ctx := context.Background()

	rs, err := loader.Load(ctx, schema.Training)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	user, _ := rs.Records[0].Label(schema.ColTrainingUser)
	assert.Equal(t, "ann", user)

	_, err = loader.Load(ctx, schema.Audits)
	assert.ErrorContains(t, err, "502")

	fp, err := loader.Fingerprint(ctx, schema.Training)
	require.NoError(t, err)
	assert.Empty(t, fp)
	assert.Equal(t, srv.URL+"/export", loader.Location())

	_, err = (&HTTPLoader{}).Load(ctx, schema.Training)
	assert.Error(t, err)
}
