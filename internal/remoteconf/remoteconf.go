// Package remoteconf holds the remote repository settings and persists them
// in a YAML file under the user's XDG config directory.
package remoteconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	DefaultPath    = "data.json"
	DefaultDirName = "housetrend"
	DefaultFile    = "remote.yml"
)

// ErrIncomplete is returned when saving a config without all required fields.
var ErrIncomplete = errors.New("请填写完整的GitHub配置信息")

// Config locates the document file in a remote repository.
type Config struct {
	Username    string `yaml:"username"`
	Repository  string `yaml:"repository"`
	AccessToken string `yaml:"accessToken"`

	Path   string `yaml:"path,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	APIURL string `yaml:"apiURL,omitempty"`
}

// Complete reports whether remote mode is enabled.
func (c Config) Complete() bool {
	return strings.TrimSpace(c.Username) != "" &&
		strings.TrimSpace(c.Repository) != "" &&
		c.AccessToken != ""
}

// FilePath returns the document path inside the repository.
func (c Config) FilePath() string {
	if p := strings.Trim(c.Path, "/ "); p != "" {
		return p
	}
	return DefaultPath
}

// API returns the API base URL without a trailing slash.
func (c Config) API() string {
	if u := strings.TrimRight(strings.TrimSpace(c.APIURL), "/"); u != "" {
		return u
	}
	return DefaultAPIURL
}

// Overlay fills the empty fields of c from fallback.
func (c Config) Overlay(fallback Config) Config {
	if c.Username == "" {
		c.Username = fallback.Username
	}
	if c.Repository == "" {
		c.Repository = fallback.Repository
	}
	if c.AccessToken == "" {
		c.AccessToken = fallback.AccessToken
	}
	if c.Path == "" {
		c.Path = fallback.Path
	}
	if c.Branch == "" {
		c.Branch = fallback.Branch
	}
	if c.APIURL == "" {
		c.APIURL = fallback.APIURL
	}
	return c
}

// Store is the durable key-value store for the remote config: one YAML file.
type Store struct {
	path string
}

// NewStore uses file, or $XDG_CONFIG_HOME/housetrend/remote.yml when empty.
func NewStore(file string) *Store {
	if strings.TrimSpace(file) == "" {
		file = filepath.Join(xdg.ConfigHome, DefaultDirName, DefaultFile)
	}
	return &Store{path: file}
}

func (s *Store) Path() string { return s.path }

// Load reads the saved config. A missing file yields an empty config.
func (s *Store) Load() (Config, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read remote config %s: %w", s.path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("unmarshal remote config %s: %w", s.path, err)
	}
	return c, nil
}

// Save writes c after checking the three required fields.
func (s *Store) Save(c Config) error {
	c.Username = strings.TrimSpace(c.Username)
	c.Repository = strings.TrimSpace(c.Repository)
	if !c.Complete() {
		return ErrIncomplete
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create remote config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal remote config: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write remote config %s: %w", s.path, err)
	}
	return nil
}
