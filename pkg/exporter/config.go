package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kubesee/kubesee/pkg/kube"
	"github.com/kubesee/kubesee/pkg/sinks"
	"k8s.io/client-go/rest"
)

const (
	DefaultCacheSize         = 1024
	DefaultMetricsNamePrefix = "kubesee_"
)

// Config allows configuration
type Config struct {
	// Route is the top route that the events will match
	LogLevel           string                    `yaml:"logLevel"`
	LogFormat          string                    `yaml:"logFormat"`
	ThrottlePeriod     int64                     `yaml:"throttlePeriod"`
	MaxEventAgeSeconds int64                     `yaml:"maxEventAgeSeconds"`
	ClusterName        string                    `yaml:"clusterName,omitempty"`
	Namespace          string                    `yaml:"namespace"`
	LeaderElection     kube.LeaderElectionConfig `yaml:"leaderElection"`
	Route              Route                     `yaml:"route"`
	Receivers          []sinks.ReceiverConfig    `yaml:"receivers"`
	KubeQPS            float32                   `yaml:"kubeQPS,omitempty"`
	KubeBurst          int                       `yaml:"kubeBurst,omitempty"`
	MetricsNamePrefix  string                    `yaml:"metricsNamePrefix,omitempty"`
	OmitLookup         bool                      `yaml:"omitLookup,omitempty"`
	CacheSize          int                       `yaml:"cacheSize,omitempty"`
}

// LoadConfig reads the YAML file at path, expands environment variables in
// its text, parses it, applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	expanded := ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExpandEnv applies the config-file environment expansion pass: "$$"
// becomes a literal "$", and "${NAME}"/"$NAME" become the named
// environment variable's value (or "" if unset). "$$" is resolved first so
// an escaped dollar can never itself be mistaken for the start of a
// variable reference.
func ExpandEnv(text string) string {
	const sentinel = "\x00KUBESEE_DOLLAR\x00"
	escaped := strings.ReplaceAll(text, "$$", sentinel)
	expanded := os.Expand(escaped, os.Getenv)
	return strings.ReplaceAll(expanded, sentinel, "$")
}

func (c *Config) SetDefaults() {
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
		slog.Debug("setting config.cacheSize=1024 (default)")
	}

	if c.KubeBurst == 0 {
		c.KubeBurst = rest.DefaultBurst
		slog.Debug(fmt.Sprintf("setting config.kubeBurst=%d (default)", rest.DefaultBurst))
	}

	if c.KubeQPS == 0 {
		c.KubeQPS = rest.DefaultQPS
		slog.Debug(fmt.Sprintf("setting config.kubeQPS=%.2f (default)", rest.DefaultQPS))
	}

	if c.MetricsNamePrefix == "" {
		c.MetricsNamePrefix = DefaultMetricsNamePrefix
		slog.Debug("setting config.metricsNamePrefix=" + DefaultMetricsNamePrefix + " (default)")
	}
}

func (c *Config) Validate() error {
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateMetricsNamePrefix(); err != nil {
		return err
	}
	if err := c.validateReceivers(); err != nil {
		return err
	}
	c.warnOnUnknownRouteReceivers()
	return nil
}

func (c *Config) validateDefaults() error {
	if err := c.validateMaxEventAgeSeconds(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMaxEventAgeSeconds() error {
	if c.ThrottlePeriod == 0 && c.MaxEventAgeSeconds == 0 {
		c.MaxEventAgeSeconds = 5
		slog.Info("setting config.maxEventAgeSeconds=5 (default)")
	} else if c.ThrottlePeriod != 0 && c.MaxEventAgeSeconds != 0 {
		slog.Error("cannot set both throttlePeriod (deprecated) and MaxEventAgeSeconds")
		return errors.New("validateMaxEventAgeSeconds failed")
	} else if c.ThrottlePeriod != 0 {
		log_value := strconv.FormatInt(c.ThrottlePeriod, 10)
		slog.Info("config.maxEventAgeSeconds=" + log_value)
		slog.Warn("config.throttlePeriod is deprecated, consider using config.maxEventAgeSeconds instead")
		c.MaxEventAgeSeconds = c.ThrottlePeriod
	} else {
		log_value := strconv.FormatInt(c.MaxEventAgeSeconds, 10)
		slog.Info("config.maxEventAgeSeconds=" + log_value)
	}
	return nil
}

func (c *Config) validateMetricsNamePrefix() error {
	if c.MetricsNamePrefix == "" {
		slog.Warn("metrics name prefix is empty, setting config.metricsNamePrefix='" + DefaultMetricsNamePrefix + "' is recommended")
		return nil
	}
	// https://prometheus.io/docs/concepts/data_model/#metric-names-and-labels
	checkResult, err := regexp.MatchString("^[a-zA-Z][a-zA-Z0-9_:]*_$", c.MetricsNamePrefix)
	if err != nil {
		return err
	}
	if !checkResult {
		slog.Error("config.metricsNamePrefix should match the regex: ^[a-zA-Z][a-zA-Z0-9_:]*_$")
		return errors.New("validateMetricsNamePrefix failed")
	}
	slog.Info("config.metricsNamePrefix='" + c.MetricsNamePrefix + "'")
	return nil
}

// validateReceivers enforces the per-receiver "exactly one sink key" rule
// and rejects duplicate receiver names -- both are hard configuration
// errors (spec.md §7).
func (c *Config) validateReceivers() error {
	seen := make(map[string]bool, len(c.Receivers))
	for _, r := range c.Receivers {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate receiver name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// warnOnUnknownRouteReceivers implements the soft invariant of spec.md §3:
// a Rule referencing a receiver name with no matching Config.Receiver is
// not a configuration error (routes may be authored before receivers), but
// it is logged so the operator notices the event will be silently dropped
// at runtime.
func (c *Config) warnOnUnknownRouteReceivers() {
	known := make(map[string]bool, len(c.Receivers))
	for _, r := range c.Receivers {
		known[r.Name] = true
	}
	for _, name := range collectRouteReceivers(&c.Route) {
		if !known[name] {
			slog.Warn("route references unknown receiver; matching events will be dropped", "receiver", name)
		}
	}
}

func collectRouteReceivers(route *Route) []string {
	var names []string
	for _, rule := range route.Match {
		if rule.Receiver != "" {
			names = append(names, rule.Receiver)
		}
	}
	for i := range route.Routes {
		names = append(names, collectRouteReceivers(&route.Routes[i])...)
	}
	return names
}
