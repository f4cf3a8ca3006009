package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Entries []string `json:"entries"`
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	in := payload{
		Name:    "alice",
		Count:   3,
		Entries: []string{"a", "b", "c"},
	}
	err := WriteAtomic(path, in)
	require.NoError(t, err)

	var out payload
	err = Read(path, &out)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestReadMissingFile(t *testing.T) {
	var out payload
	err := Read(filepath.Join(t.TempDir(), "nope.json"), &out)
	require.True(t, os.IsNotExist(err))
}

// a crash between temp write and rename must leave the previous complete
// file in place. the stale temp file stands in for the interrupted writer.
func TestCrashBeforeRenameKeepsOldContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	err := WriteAtomic(path, payload{Name: "old", Count: 1})
	require.NoError(t, err)

	err = os.WriteFile(path+".tmp", []byte(`{"name":"new","cou`), 0644)
	require.NoError(t, err)

	var out payload
	err = Read(path, &out)
	require.NoError(t, err)
	require.Equal(t, "old", out.Name)

	// a later successful write wins over the stale temp file
	err = WriteAtomic(path, payload{Name: "new", Count: 2})
	require.NoError(t, err)
	err = Read(path, &out)
	require.NoError(t, err)
	require.Equal(t, "new", out.Name)
}

func TestWriteAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	for i := 0; i < 5; i++ {
		err := WriteAtomic(path, payload{Count: i})
		require.NoError(t, err)
	}

	var out payload
	err := Read(path, &out)
	require.NoError(t, err)
	require.Equal(t, 4, out.Count)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}
