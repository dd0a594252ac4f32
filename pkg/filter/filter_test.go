package filter

import (
	"testing"

	"collectd.szuro.net/pkg/api"
	"github.com/stretchr/testify/require"
)

var cpuIdle = api.Identifier{Host: "web1", Plugin: "cpu", PluginInstance: "0", Type: "percent", TypeInstance: "idle"}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		config   FilterConfig
		id       api.Identifier
		expected bool
	}{
		{
			name:     "No rules specified, everything accepted",
			config:   FilterConfig{},
			id:       cpuIdle,
			expected: true,
		},
		{
			name:     "Only accepted rules provided, matching rule",
			config:   FilterConfig{Accepted: []string{"plugin:cpu"}},
			id:       cpuIdle,
			expected: true,
		},
		{
			name:     "Only accepted rules provided, non-matching rule",
			config:   FilterConfig{Accepted: []string{"plugin:memory"}},
			id:       cpuIdle,
			expected: false,
		},
		{
			name:     "Only rejected rules provided, non-matching rule",
			config:   FilterConfig{Rejected: []string{"type_instance:steal"}},
			id:       cpuIdle,
			expected: true,
		},
		{
			name:     "Only rejected rules provided, matching glob",
			config:   FilterConfig{Rejected: []string{"host:web*"}},
			id:       cpuIdle,
			expected: false,
		},
		{
			name: "Both provided, matching accepted rule, non-matching rejected rule",
			config: FilterConfig{
				Accepted: []string{"plugin:c?u"},
				Rejected: []string{"plugin_instance:1"},
			},
			id:       cpuIdle,
			expected: true,
		},
		{
			name: "Both provided, matching accepted and rejected rules",
			config: FilterConfig{
				Accepted: []string{"plugin:cpu"},
				Rejected: []string{"TYPE:percent"},
			},
			id:       cpuIdle,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.config)
			require.NoError(t, err)
			if result := f.Accept(tt.id); result != tt.expected {
				t.Errorf("Accept() = %v, expected %v", result, tt.expected)
			}
			n := api.Notification{Identifier: tt.id}
			if result := f.AcceptNotification(n); result != tt.expected {
				t.Errorf("AcceptNotification() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestNewFilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		config FilterConfig
	}{
		{"Missing separator", FilterConfig{Accepted: []string{"cpu"}}},
		{"Unknown field", FilterConfig{Rejected: []string{"tag:cpu"}}},
		{"Bad pattern", FilterConfig{Accepted: []string{"plugin:[cpu"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter(tt.config)
			require.Error(t, err)
		})
	}
}

func TestFilterValues(t *testing.T) {
	f, err := NewFilter(FilterConfig{Accepted: []string{"plugin:cpu"}})
	require.NoError(t, err)

	vls := []api.ValueList{
		{Identifier: cpuIdle},
		{Identifier: api.Identifier{Plugin: "memory", Type: "memory"}},
	}
	filtered := f.FilterValues(vls)
	if len(filtered) != 1 {
		t.Errorf("Expected 1 value list, got %d", len(filtered))
	}

	empty := NewEmptyFilter()
	require.Len(t, empty.FilterValues(vls), 2)
}
