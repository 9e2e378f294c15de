package lib

import (
	"os"
	"path/filepath"
	"testing"

	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"github.com/sfdc-hhildebrand/merkle-prefix-trie/trie"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg.Bucket = "other"
	cfg.Debug = 3
	require.NoError(t, cfg.Save(dir))

	cfg2, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, cfg, cfg2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("Debug = \"x\""), 0600))
	_, err = LoadConfig(dir)
	require.Error(t, err)
}

func TestConfig_OpenStore(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join("sub", "test.db")

	s, db, err := cfg.OpenStore(dir)
	require.NoError(t, err)
	tr := trie.NewTrie(mpt.Suite)
	tr.Set([]byte("k"), []byte("v"))
	_, err = s.Save(tr)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.FileExists(t, filepath.Join(dir, "sub", "test.db"))

	cfg.Suite = "no such suite"
	_, _, err = cfg.OpenStore(dir)
	require.Error(t, err)
}
