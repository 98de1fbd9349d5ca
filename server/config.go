package server

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkrehbiel/activitystreams/internal/json"
	"gopkg.in/yaml.v3"
)

type serverConfig struct {
	HostName        string `json:"host" yaml:"host"`
	Certificate     string `json:"certificate" yaml:"certificate"`
	PrivateKey      string `json:"privatekey" yaml:"privatekey"`
	Port            int    `json:"port" yaml:"port"`
	AcceptAll       bool   `json:"accept_all" yaml:"accept_all"` // for debugging
	SendUnsigned    bool   `json:"send_unsigned" yaml:"send_unsigned"`
	ReceiveUnsigned bool   `json:"receive_unsigned" yaml:"receive_unsigned"`
	MaxFollowers    int    `json:"max_followers" yaml:"max_followers"`
	DatabaseDir     string `json:"database_dir" yaml:"database_dir"`
	DeliveryRetries int    `json:"delivery_retries" yaml:"delivery_retries"`
}

func (s serverConfig) useTLS() bool {
	return s.Certificate != "" && s.PrivateKey != ""
}

// database is the sqlite file holding every user's collections.
func (s serverConfig) database() string {
	return filepath.Join(s.DatabaseDir, "activitystreams.db")
}

type userConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	SourceURL   string   `json:"outboxSource" yaml:"outboxSource"`
	PubKeyFile  string   `json:"pubKey,omitempty" yaml:"pubKey,omitempty"`
	PrivKeyFile string   `json:"privKey,omitempty" yaml:"privKey,omitempty"`
	Inboxes     []string `json:"inboxes,omitempty" yaml:"inboxes,omitempty"` // always delivered to
}

type Config struct {
	URL    string       `json:"url" yaml:"url"` // public-facing URL
	Server serverConfig `json:"server" yaml:"server"`
	Users  []userConfig `json:"users" yaml:"users"`
}

func (c Config) PublicHost() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

func ReadConfig(b []byte) (config Config, err error) {
	if uErr := json.Unmarshal(b, &config); uErr != nil {
		return config, uErr
	}
	return config, nil
}

func ReadConfigYAML(b []byte) (config Config, err error) {
	if uErr := yaml.Unmarshal(b, &config); uErr != nil {
		return config, uErr
	}
	return config, nil
}

// LoadConfig reads a config file, choosing YAML or JSON by extension.
func LoadConfig(filename string) (Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("opening config %s: %w", filename, err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		cfg, err = ReadConfigYAML(b)
	default:
		cfg, err = ReadConfig(b)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", filename, err)
	}
	return cfg, nil
}
