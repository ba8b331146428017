package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all widget configuration
type Config struct {
	// Chat service settings
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Widget presentation
	ContainerID  string   `yaml:"container_id"`
	Title        string   `yaml:"title"`
	StatusText   string   `yaml:"status_text"`
	Greeting     string   `yaml:"greeting"`
	QuickReplies []string `yaml:"quick_replies"`
	SupportEmail string   `yaml:"support_email"`

	// Host server settings
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	HostPage       string   `yaml:"host_page"`
	MaxVisitors    int      `yaml:"max_visitors"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Verbose  bool   `yaml:"verbose"`
}

// NewConfig creates a new configuration with default values.
// BaseURL has no default: it must be supplied at deployment time.
func NewConfig() *Config {
	return &Config{
		// A zero timeout leaves the transport defaults in charge
		RequestTimeout: 0,

		ContainerID: "maticstudio-chat",
		Title:       "MATIC Studio Assistant",
		StatusText:  "🟢 Online",
		Greeting: "Hello! I'm your MATIC Studio assistant. I'm here to help you discover how " +
			"automation can transform your business processes. What would you like to learn about today?",
		QuickReplies: []string{
			"Set a tune-up call?",
			"What do you offer?",
			"Learn more about MATICStudio",
		},
		SupportEmail: "inquire@maticstudio.net",

		ListenAddr: ":8080",
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8080",
		},
		MaxVisitors: 1000,

		LogLevel: "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("chat API URL cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrapf(err, "invalid chat API URL %q", c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("chat API URL must be http or https, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("chat API URL %q has no host", c.BaseURL)
	}
	if c.ContainerID == "" {
		return fmt.Errorf("container id cannot be empty")
	}
	if strings.ContainsAny(c.ContainerID, " \t\n") {
		return fmt.Errorf("container id %q must not contain whitespace", c.ContainerID)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.MaxVisitors < 1 {
		return fmt.Errorf("max visitors must be at least 1")
	}
	return nil
}

// FallbackMessage is the apology rendered whenever a round-trip fails
func (c *Config) FallbackMessage() string {
	return "I apologize, but I'm having trouble connecting right now. " +
		"Please try again later or contact us directly at " + c.SupportEmail + "."
}

// LoadFile overlays the values found in a YAML file on top of c.
// Keys missing from the file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// ApplyEnv overlays environment-derived settings
func (c *Config) ApplyEnv() {
	if v := GetEnv("CHAT_API_URL"); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
	if v := GetEnv("CHAT_WIDGET_LISTEN"); v != "" {
		c.ListenAddr = v
	}
	if v := GetEnv("CHAT_WIDGET_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// ExpandHome expands the ~ in file paths to the user's home directory
func ExpandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = func(key string) string {
	// Will be replaced with os.Getenv in main
	return ""
}
