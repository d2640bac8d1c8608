package localfile

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRepository_JSONArray(t *testing.T) {
	p := writeFile(t, t.TempDir(), "book.json", `[
		{"srl": 1, "class": "Marine", "gross_premium": "1,200", "max_liability": 5000},
		{"srl": "2", "class": "Motor", "gross_premium": 300.5, "max_liability": ""}
	]`)

	got, err := NewRepository(p, nil).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].SerialNumber)
	assert.Equal(t, "1200", got[0].GrossPremium.String())
	assert.True(t, got[0].MaxLiability.Valid)
	assert.Equal(t, "300.5", got[1].GrossPremium.String())
	assert.False(t, got[1].MaxLiability.Valid)
}

func TestRepository_JSONObject(t *testing.T) {
	p := writeFile(t, t.TempDir(), "book.json", `{"policies": [{"srl": "A"}], "exported_at": "2024-01-01"}`)
	got, err := NewRepository(p, nil).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].SerialNumber)
}

func TestRepository_EmptyFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "book.json", "  \n")
	got, err := NewRepository(p, nil).FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRepository_CSV(t *testing.T) {
	p := writeFile(t, t.TempDir(), "book.CSV", "\xef\xbb\xbfSRL,Class,Gross_Premium,Unknown,renewal_date\n"+
		`P-1,Marine,"1,500.25",x,15/03/2025`+"\n"+
		"P-2,Motor\n")

	got, err := NewRepository(p, nil).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "P-1", got[0].SerialNumber)
	assert.Equal(t, "1500.25", got[0].GrossPremium.String())
	assert.Equal(t, "15/03/2025", got[0].Renewal.Date)
	assert.Equal(t, "Motor", got[1].Class)
	assert.True(t, got[1].GrossPremium.IsZero())
}

func TestRepository_CSVHeaderOnly(t *testing.T) {
	p := writeFile(t, t.TempDir(), "book.csv", "srl,class\n")
	got, err := NewRepository(p, nil).FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepository_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRepository(filepath.Join(dir, "missing.json"), nil).FindAll(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))

	bad := writeFile(t, dir, "bad.json", `[{"srl": `)
	_, err = NewRepository(bad, nil).FindAll(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceParseError))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRepository(bad, nil).FindAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_FiresOnceForBurst(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "book.json", "[]")
	_ = writeFile(t, dir, "other.json", "[]")

	var calls atomic.Int32
	w := NewWatcher(p, func(context.Context) { calls.Add(1) }, nil).WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(p, []byte(`[{"srl":"x"}]`), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("[1]"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope", "book.json"), func(context.Context) {}, nil)
	err := w.Run(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))
}
