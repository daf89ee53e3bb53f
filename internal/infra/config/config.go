// Package config provides layered runtime configuration for deepchat.
// Resolution order: hard defaults < config.json < DEEPCHAT_* environment
// variables. The manager persists updates back to the config file so the
// settings survive a restart; unknown keys already in the file are preserved.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/sjson"
)

// Config holds runtime configuration for the deepchat backend.
type Config struct {
	APIKey        string  `json:"api_key"`
	APIBase       string  `json:"api_base"`
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	UploadMaxSize int64   `json:"upload_max_size"`
}

const (
	envKeyAPIKey        = "DEEPCHAT_API_KEY"
	envKeyAPIBase       = "DEEPCHAT_API_BASE"
	envKeyModel         = "DEEPCHAT_MODEL"
	envKeyTemperature   = "DEEPCHAT_TEMPERATURE"
	envKeyMaxTokens     = "DEEPCHAT_MAX_TOKENS"
	envKeyUploadMaxSize = "DEEPCHAT_UPLOAD_MAX_SIZE"
)

// Default returns the built-in configuration used when neither the config
// file nor the environment provides a value.
func Default() Config {
	return Config{
		APIBase:       "https://api.deepseek.com/v1",
		Model:         "deepseek-chat",
		Temperature:   0.7,
		MaxTokens:     1000,
		UploadMaxSize: 10 * 1024 * 1024, // 10MB
	}
}

// Manager owns the resolved configuration and its backing file.
// Safe for concurrent use; the HTTP config endpoints and the LLM adapter
// read through it while a POST /api/config may be updating it.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg Config
}

// NewManager resolves configuration from path and the environment.
// A missing config file is created with the defaults so operators have a
// template to edit. A malformed file is an error, not a silent fallback.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path, cfg: Default()}

	if err := m.loadFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
		if err := m.writeDefaultFile(); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", path, err)
		}
	}

	if err := m.applyEnv(); err != nil {
		return nil, err
	}

	return m, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update applies a partial update (JSON-decoded key/value pairs) to the
// in-memory configuration and persists the changed keys to the config file.
// Unknown keys are rejected; keys not present in the patch are untouched.
func (m *Manager) Update(patch map[string]any) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	applied := map[string]any{}
	for key, raw := range patch {
		switch key {
		case "api_key":
			v, ok := raw.(string)
			if !ok || v == "" {
				continue // never blank out a key via the API
			}
			m.cfg.APIKey = v
			applied[key] = v
		case "api_base":
			v, ok := raw.(string)
			if !ok {
				return Config{}, fmt.Errorf("config: api_base must be a string")
			}
			m.cfg.APIBase = v
			applied[key] = v
		case "model":
			v, ok := raw.(string)
			if !ok {
				return Config{}, fmt.Errorf("config: model must be a string")
			}
			m.cfg.Model = v
			applied[key] = v
		case "temperature":
			v, err := toFloat(raw)
			if err != nil {
				return Config{}, fmt.Errorf("config: temperature: %w", err)
			}
			m.cfg.Temperature = v
			applied[key] = v
		case "max_tokens":
			v, err := toInt(raw)
			if err != nil {
				return Config{}, fmt.Errorf("config: max_tokens: %w", err)
			}
			m.cfg.MaxTokens = int(v)
			applied[key] = v
		case "upload_max_size":
			v, err := toInt(raw)
			if err != nil {
				return Config{}, fmt.Errorf("config: upload_max_size: %w", err)
			}
			m.cfg.UploadMaxSize = v
			applied[key] = v
		default:
			return Config{}, fmt.Errorf("config: unknown key %q", key)
		}
	}

	if len(applied) == 0 {
		return m.cfg, nil
	}
	if err := m.patchFile(applied); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

// Redacted returns the configuration as a JSON-ready map with the API key
// masked: first 4 and last 4 characters for long keys, "****" otherwise.
func (m *Manager) Redacted() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"api_key":         maskKey(m.cfg.APIKey),
		"api_base":        m.cfg.APIBase,
		"model":           m.cfg.Model,
		"temperature":     m.cfg.Temperature,
		"max_tokens":      m.cfg.MaxTokens,
		"upload_max_size": m.cfg.UploadMaxSize,
	}
}

// --- internal ---

func (m *Manager) loadFile() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}

	// The file layer only overrides values it actually sets.
	if fileCfg.APIKey != "" {
		m.cfg.APIKey = fileCfg.APIKey
	}
	if fileCfg.APIBase != "" {
		m.cfg.APIBase = fileCfg.APIBase
	}
	if fileCfg.Model != "" {
		m.cfg.Model = fileCfg.Model
	}
	if fileCfg.Temperature != 0 {
		m.cfg.Temperature = fileCfg.Temperature
	}
	if fileCfg.MaxTokens != 0 {
		m.cfg.MaxTokens = fileCfg.MaxTokens
	}
	if fileCfg.UploadMaxSize != 0 {
		m.cfg.UploadMaxSize = fileCfg.UploadMaxSize
	}
	return nil
}

func (m *Manager) applyEnv() error {
	if v := os.Getenv(envKeyAPIKey); v != "" {
		m.cfg.APIKey = v
	}
	if v := os.Getenv(envKeyAPIBase); v != "" {
		m.cfg.APIBase = v
	}
	if v := os.Getenv(envKeyModel); v != "" {
		m.cfg.Model = v
	}
	if v := os.Getenv(envKeyTemperature); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", envKeyTemperature, err)
		}
		m.cfg.Temperature = f
	}
	if v := os.Getenv(envKeyMaxTokens); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", envKeyMaxTokens, err)
		}
		m.cfg.MaxTokens = n
	}
	if v := os.Getenv(envKeyUploadMaxSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", envKeyUploadMaxSize, err)
		}
		m.cfg.UploadMaxSize = n
	}
	return nil
}

func (m *Manager) writeDefaultFile() error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(m.path, data)
}

// patchFile sets only the updated keys in the raw file so that comments in
// sibling keys and keys this version does not know about survive the write.
func (m *Manager) patchFile(applied map[string]any) error {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read %s: %w", m.path, err)
		}
		raw = []byte("{}")
	}

	for key, value := range applied {
		raw, err = sjson.SetBytes(raw, key, value)
		if err != nil {
			return fmt.Errorf("config: patch %s: %w", key, err)
		}
	}
	if err := atomicWrite(m.path, raw); err != nil {
		return fmt.Errorf("config: write %s: %w", m.path, err)
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory and renames
// it into place so readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()            //nolint:errcheck
		os.Remove(tmp.Name())  //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
