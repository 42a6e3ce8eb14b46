package collect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquest/internal/store"
)

func TestCommandCollector(t *testing.T) {
	ev, err := CommandCollector{Command: "sh", Args: []string{"-c", "echo hello"}}.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, store.EvidenceCommandOutput, ev.Type)
	assert.Equal(t, "sh -c echo hello", ev.Source)

	content, ok := ev.Content.(map[string]any)
	require.True(t, ok, "content should be a map, got %T", ev.Content)
	assert.Equal(t, "hello\n", content["stdout"])
	assert.Equal(t, 0, content["exit_code"])
	assert.True(t, strings.HasPrefix(ev.Metadata.Checksum, "sha256:"))

	require.Len(t, ev.ChainOfCustody, 1)
	assert.Equal(t, "collected", ev.ChainOfCustody[0].Action)
	assert.False(t, ev.CreatedAt.IsZero())
}

func TestCommandCollector_NonZeroExitIsEvidence(t *testing.T) {
	ev, err := CommandCollector{Command: "sh", Args: []string{"-c", "exit 3"}}.Collect(context.Background())
	require.NoError(t, err, "a failing command is still evidence")

	content := ev.Content.(map[string]any)
	assert.Equal(t, 3, content["exit_code"])
}

func TestCommandCollector_MissingBinary(t *testing.T) {
	_, err := CommandCollector{Command: "definitely-not-a-binary-7f3a"}.Collect(context.Background())
	require.Error(t, err)
}

func TestCommandCollector_EmptyCommand(t *testing.T) {
	_, err := CommandCollector{}.Collect(context.Background())
	require.Error(t, err)
}

func TestFileCollector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.conf")
	require.NoError(t, os.WriteFile(path, []byte("listen = 8080\n"), 0o644))

	ev, err := FileCollector{Path: path}.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, store.EvidenceFileSnapshot, ev.Type)
	assert.Equal(t, path, ev.Path)
	assert.EqualValues(t, 14, ev.Metadata.Size)
	assert.True(t, strings.HasPrefix(ev.Metadata.Checksum, "sha256:"))

	content := ev.Content.(map[string]any)
	assert.Equal(t, "listen = 8080\n", content["data"])
}

func TestFileCollector_MissingFile(t *testing.T) {
	_, err := FileCollector{Path: filepath.Join(t.TempDir(), "gone")}.Collect(context.Background())
	require.Error(t, err)
}

func TestSysInfoCollector(t *testing.T) {
	ev, err := SysInfoCollector{}.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, store.EvidenceSystemInfo, ev.Type)
	content := ev.Content.(map[string]any)
	assert.NotEmpty(t, content["os"])
	assert.NotEmpty(t, content["arch"])
	assert.NotZero(t, content["num_cpu"])
}

func TestBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	items, err := Batch(context.Background(),
		SysInfoCollector{},
		FileCollector{Path: path},
		CommandCollector{Command: "sh", Args: []string{"-c", "true"}},
	)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Results come back in collector order regardless of completion order.
	assert.Equal(t, store.EvidenceSystemInfo, items[0].Type)
	assert.Equal(t, store.EvidenceFileSnapshot, items[1].Type)
	assert.Equal(t, store.EvidenceCommandOutput, items[2].Type)
}

func TestBatch_OneFailureFailsBatch(t *testing.T) {
	_, err := Batch(context.Background(),
		SysInfoCollector{},
		FileCollector{Path: filepath.Join(t.TempDir(), "missing")},
	)
	require.Error(t, err)
}
