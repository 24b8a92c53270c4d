package effecter

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/pdr"
)

// InvalidEffecterID is the sentinel "not yet resolved" effecter id (spec
// §4.4.1 "optional effecterID (if absent, discovered via
// findStateEffecterId)").
const InvalidEffecterID uint16 = 0xFFFF

// DBusInfo names the D-Bus property a configured effecter state maps to
// (spec §4.4.1 dbus_info).
type DBusInfo struct {
	ObjectPath   string `json:"object_path" validate:"required"`
	Interface    string `json:"interface" validate:"required"`
	PropertyName string `json:"property_name" validate:"required"`
	PropertyType string `json:"property_type" validate:"required,oneof=string int64 double bool"`
}

// StateInfo names the state set and its permissible values for one
// configured effecter (spec §4.4.1 state).
type StateInfo struct {
	ID          uint16   `json:"id" validate:"required"`
	StateValues []string `json:"state_values" validate:"required,min=1"`
}

// EffecterEntry is one entry in the `effecters` list of an EffecterConfig
// (spec §4.4.1). `dbusInfoIndex` is this entry's composite offset within its
// parent EffecterConfig's effecter_info (spec §9 Open Question).
type EffecterEntry struct {
	DBusInfo       DBusInfo  `json:"dbus_info" validate:"required"`
	PropertyValues []string  `json:"property_values" validate:"required,min=1"`
	State          StateInfo `json:"state" validate:"required"`
	DBusInfoIndex  int       `json:"dbus_info_index" validate:"gte=0"`
}

// EffecterConfig is the static JSON description of one configured effecter
// (spec §4.4.1).
type EffecterConfig struct {
	MCTPEID                uint8           `json:"mctp_eid" validate:"required"`
	EffecterID             uint16          `json:"effecter_id"`
	CompositeEffecterCount int             `json:"composite_effecter_count" validate:"required,gt=0,lte=8"`
	EffecterInfo           string          `json:"effecter_info"`
	Effecters              []EffecterEntry `json:"effecters" validate:"required,min=1,dive"`

	// Entity identifies the container this effecter lives under, consulted
	// by findStateEffecterId when EffecterID is InvalidEffecterID (spec
	// §4.4.1).
	Entity pdr.Entity `json:"entity"`
}

// File is the top-level shape of the effecter-mapping JSON file: a list of
// effecter configurations.
type File struct {
	Effecters []EffecterConfig `json:"effecters" validate:"required,dive"`
}

var validate = validator.New()

// LoadFile reads and validates the effecter-mapping JSON file at path,
// enforcing the Open Question decision that
// len(Effecters) == CompositeEffecterCount for every configured effecter
// (spec §9).
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("effecter: read config %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("effecter: parse config %s: %w", path, err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("effecter: invalid config %s: %w", path, err)
	}
	for i, cfg := range f.Effecters {
		if len(cfg.Effecters) != cfg.CompositeEffecterCount {
			return nil, fmt.Errorf("effecter: config[%d] (eid %d): len(effecters)=%d != composite_effecter_count=%d",
				i, cfg.MCTPEID, len(cfg.Effecters), cfg.CompositeEffecterCount)
		}
		for j, e := range cfg.Effecters {
			if len(e.PropertyValues) != len(e.State.StateValues) {
				return nil, fmt.Errorf("effecter: config[%d].effecters[%d]: len(property_values)=%d != len(state_values)=%d",
					i, j, len(e.PropertyValues), len(e.State.StateValues))
			}
		}
	}
	return &f, nil
}

// Schema returns the JSON Schema for File, generated the way the teacher's
// `dfs config schema` command generates one for its own Config struct.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&File{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "PLDM Effecter Configuration"
	schema.Description = "Configuration schema for the pldmd effecter mapping file"
	return json.MarshalIndent(schema, "", "  ")
}

// Watcher hot-reloads the effecter-mapping JSON file on write, atomically
// swapping the cached *File the way the teacher's SettingsWatcher atomically
// swaps cached settings on change (here file-event-triggered instead of
// polled, since the source is a local file rather than a database row).
type Watcher struct {
	path    string
	current atomic.Pointer[File]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped chan struct{}
}

// NewWatcher loads path once and returns a Watcher ready to have Start
// called on it.
func NewWatcher(path string) (*Watcher, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, stopCh: make(chan struct{}), stopped: make(chan struct{})}
	w.current.Store(f)
	return w, nil
}

// Current returns the most recently loaded configuration. The returned
// pointer must not be mutated by callers.
func (w *Watcher) Current() *File {
	return w.current.Load()
}

// Start begins watching the config file for writes, reloading and swapping
// Current() on each change. Reload failures are logged and the previous
// configuration is kept in place.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("effecter: create file watcher: %w", err)
	}
	if err := fw.Add(w.path); err != nil {
		_ = fw.Close()
		return fmt.Errorf("effecter: watch %s: %w", w.path, err)
	}
	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-w.stopCh:
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				f, err := LoadFile(w.path)
				if err != nil {
					logger.Warn("effecter: reload failed, keeping previous config", logger.Err(err))
					continue
				}
				w.current.Store(f)
				logger.Info("effecter: config reloaded", "path", w.path, "effecters", len(f.Effecters))
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("effecter: watcher error", logger.Err(err))
			}
		}
	}()
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw != nil {
		_ = fw.Close()
	}
	<-w.stopped
}
