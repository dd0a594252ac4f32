// Package config reads the harness configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"collectd.szuro.net/pkg/filter"
	"gopkg.in/yaml.v3"
)

var (
	Version, Commit, BuildDate string
)

const (
	DEFAULT_COLLECTD_CONFIG = "/etc/collectd/collectd.conf"
	DEFAULT_INTERVAL        = 10 * time.Second
	DEFAULT_PORT            = 9103
)

type HarnessConf struct {
	CollectdConfig string `yaml:"collectd_config"`
	Hostname       string
	Interval       time.Duration
	PluginsDir     string `yaml:"plugins_dir"`
	Plugins        []PluginConf
	Sinks          []SinkConf
	Filter         filter.FilterConfig `yaml:"filter"`
	WorkingDir     string              `yaml:"working_dir"`
	Http           HTTPConf            `yaml:"http"`
	LogLevel       string              `yaml:"log_level"`
	slogLevel      slog.Level
}

// PluginConf is a plugin executable built with rpcplugin.Serve.
type PluginConf struct {
	Name string
	Path string
	Args []string
}

type HTTPConf struct {
	ListenPort    int    `yaml:"listen_port"`
	ListenAddress string `yaml:"listen_address"`
}

func (hc *HarnessConf) setLogLevel() {
	switch hc.LogLevel {
	case "DEBUG":
		hc.slogLevel = slog.LevelDebug
	case "INFO":
		hc.slogLevel = slog.LevelInfo
	case "WARN":
		hc.slogLevel = slog.LevelWarn
	case "ERROR":
		hc.slogLevel = slog.LevelError
	default:
		hc.slogLevel = slog.LevelInfo
	}
}

func (hc *HarnessConf) GetLogLevel() slog.Level {
	return hc.slogLevel
}

func (hc *HarnessConf) setCollectdConfig() {
	if hc.CollectdConfig == "" {
		hc.CollectdConfig = DEFAULT_COLLECTD_CONFIG
	}
}

func (hc *HarnessConf) setHostname() {
	if hc.Hostname != "" {
		return
	}
	if h, err := os.Hostname(); err == nil {
		hc.Hostname = h
	} else {
		hc.Hostname = "localhost"
	}
}

// UnmarshalYAML reads a unitless interval as seconds, the way collectd.conf
// does. Strings such as "10s" go through time.ParseDuration.
func (hc *HarnessConf) UnmarshalYAML(node *yaml.Node) error {
	type plain HarnessConf
	if err := node.Decode((*plain)(hc)); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Value != "interval" || (value.Tag != "!!int" && value.Tag != "!!float") {
			continue
		}
		var seconds float64
		if err := value.Decode(&seconds); err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		hc.Interval = time.Duration(seconds * float64(time.Second))
	}
	return nil
}

func (hc *HarnessConf) setInterval() {
	if hc.Interval <= 0 {
		hc.Interval = DEFAULT_INTERVAL
	}
}

func (hc *HarnessConf) setPort() {
	if hc.Http.ListenPort == 0 {
		hc.Http.ListenPort = DEFAULT_PORT
	}
}

func (hc *HarnessConf) setWorkingDir() {
	if hc.WorkingDir == "" {
		hc.WorkingDir = os.TempDir()
	}
}

func (hc *HarnessConf) setOfflineBuffers() {
	for i := range hc.Sinks {
		if hc.Sinks[i].OfflineBufferTime < 0 {
			hc.Sinks[i].OfflineBufferTime = 0
		}
	}
}

func (hc *HarnessConf) setDefaults() {
	hc.setCollectdConfig()
	hc.setHostname()
	hc.setInterval()
	hc.setPort()
	hc.setWorkingDir()
	hc.setOfflineBuffers()
	hc.setLogLevel()
}

// Validate reports configuration errors that defaults cannot fix.
func (hc *HarnessConf) Validate() error {
	if len(hc.Plugins) == 0 {
		return fmt.Errorf("no plugins configured")
	}
	seen := map[string]bool{}
	for _, p := range hc.Plugins {
		if p.Path == "" {
			return fmt.Errorf("plugin %q: path is required", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("plugin %q configured twice", p.Name)
		}
		seen[p.Name] = true
	}
	seen = map[string]bool{}
	for _, s := range hc.Sinks {
		if s.Name == "" || s.Type == "" {
			return fmt.Errorf("sinks need a name and a type")
		}
		if seen[s.Name] {
			return fmt.Errorf("sink %q configured twice", s.Name)
		}
		seen[s.Name] = true
	}
	if _, err := filter.NewFilter(hc.Filter); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	return nil
}

// Parse decodes a harness configuration and applies defaults.
func Parse(data []byte) (HarnessConf, error) {
	conf := HarnessConf{}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("cannot parse harness config: %w", err)
	}
	conf.setDefaults()
	if err := conf.discoverPlugins(); err != nil {
		return conf, err
	}
	return conf, conf.Validate()
}

func ParseHarnessConfig(path string) (HarnessConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HarnessConf{}, fmt.Errorf("cannot read harness config: %w", err)
	}
	return Parse(data)
}
