package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, WriteToFile(file, "a", "b"))
	bs, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", string(bs))

	log := filepath.Join(dir, "log.jsonl")
	require.NoError(t, AppendToFile(log, "1"))
	require.NoError(t, AppendToFile(log, "2", "3"))
	bs, err = os.ReadFile(log)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", string(bs))
}
