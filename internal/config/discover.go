package config

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// discoverPlugins adds every executable in PluginsDir that is not configured
// explicitly. The plugin is named after the file, without extension.
func (hc *HarnessConf) discoverPlugins() error {
	if hc.PluginsDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(hc.PluginsDir, "*"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", hc.PluginsDir, err)
	}

	known := make(map[string]bool, len(hc.Plugins))
	for _, p := range hc.Plugins {
		known[p.Name] = true
	}
	for _, path := range matches {
		if found, err := exec.LookPath(path); err != nil || found == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if known[name] {
			continue
		}
		known[name] = true
		hc.Plugins = append(hc.Plugins, PluginConf{Name: name, Path: path})
	}
	return nil
}
