package lib

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"github.com/sfdc-hhildebrand/merkle-prefix-trie/store"
	"golang.org/x/xerrors"
)

// Name is the name of the tool, used for its default configuration directory.
const Name = "mptadmin"

// ConfigFile is the name of the configuration file in the configuration
// directory.
const ConfigFile = "config.toml"

// Config holds where the versions of the trie are stored and how it is
// hashed.
type Config struct {
	// DBPath is the bbolt file. A relative path is relative to the
	// configuration directory.
	DBPath string
	// Bucket is the bbolt bucket holding the versions.
	Bucket string
	// Suite is the name of the kyber suite whose hash is used.
	Suite string
	// Debug is the default debug level.
	Debug int
}

// DefaultConfig returns the configuration used when dir has none.
func DefaultConfig() *Config {
	return &Config{
		DBPath: "mpt.db",
		Bucket: "versions",
		Suite:  mpt.DefaultSuiteName,
	}
}

// LoadConfig reads the configuration of dir. If there is none yet, the
// default configuration is returned.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()
	fn := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(fn, cfg); err != nil {
		return nil, xerrors.Errorf("reading %s: %v", fn, err)
	}
	return cfg, nil
}

// Save writes the configuration to dir, creating it if needed.
func (cfg *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return xerrors.Errorf("creating %s: %v", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, ConfigFile))
	if err != nil {
		return xerrors.Errorf("creating config: %v", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return xerrors.Errorf("writing config: %v", err)
	}
	return nil
}

// OpenStore opens the database of the configuration. The caller must close
// the returned DB.
func (cfg *Config) OpenStore(dir string) (*store.Store, store.DB, error) {
	suite, err := mpt.FindSuite(cfg.Suite)
	if err != nil {
		return nil, nil, err
	}
	path := cfg.DBPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, xerrors.Errorf("creating %s: %v", filepath.Dir(path), err)
	}
	db, err := store.NewDiskDB(path, []byte(cfg.Bucket))
	if err != nil {
		return nil, nil, err
	}
	return store.NewStore(db, suite), db, nil
}
