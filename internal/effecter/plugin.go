package effecter

import (
	"sync"

	"github.com/openbmc-go/pldmd/internal/pdr"
)

// OEMPlatformPlugin is offered every newly created numeric effecter and may
// attach additional handlers for it (spec §4.4.5). Plugins receive an
// EffecterInfo by value copy — not a retained pointer — so they cannot
// extend its lifetime beyond the registry that owns it (spec "Plugins must
// not retain strong references to effecters").
type OEMPlatformPlugin interface {
	// Name identifies the plugin for logging.
	Name() string
	// OnNumericEffecterCreated is called once per numeric effecter as it is
	// registered. rec is the raw PDR backing the effecter, info a snapshot
	// of its registry entry at creation time.
	OnNumericEffecterCreated(info EffecterInfo, rec *pdr.Record)
}

// PluginRegistry holds the set of OEM plugins offered every numeric
// effecter as it is created, grounded on the same registration-list shape
// as the responder's command dispatch table.
type PluginRegistry struct {
	mu      sync.Mutex
	plugins []OEMPlatformPlugin
}

// NewPluginRegistry constructs an empty PluginRegistry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{}
}

// Register adds a plugin. Order matters: plugins are notified in
// registration order.
func (p *PluginRegistry) Register(plugin OEMPlatformPlugin) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plugins = append(p.plugins, plugin)
}

// NotifyNumericEffecterCreated offers info/rec to every registered plugin.
func (p *PluginRegistry) NotifyNumericEffecterCreated(info EffecterInfo, rec *pdr.Record) {
	p.mu.Lock()
	plugins := make([]OEMPlatformPlugin, len(p.plugins))
	copy(plugins, p.plugins)
	p.mu.Unlock()

	for _, plugin := range plugins {
		plugin.OnNumericEffecterCreated(info, rec)
	}
}
