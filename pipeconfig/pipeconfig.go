// Package pipeconfig is the JSON-driven configuration surface for
// detectors, writers, filters and caches: a typed top-level record
// plus free-form per-stage parameter groups extracted into typed
// structs on demand.
package pipeconfig

import (
	"encoding/json"
	"os"
)

// ConfigGroup is a free-form bag of per-stage settings.
type ConfigGroup map[string]interface{}

const (
	defaultLRUCacheCapacity     = 64
	defaultMaxArchiveEntryBytes = 64 << 20
	defaultResourceSearchRoot   = "share"
)

// PipelineConfig is the JSON-tagged configuration record for one
// pipeline build: detector bundle toggles, cache sizing, resource
// lookup roots and per-stage parameter groups.
type PipelineConfig struct {
	// LRUCacheCapacity bounds the zip entry-name cache shared by the
	// zip-probing refiners (detect.CachedEntryNames). Defaults to 64
	// entries.
	LRUCacheCapacity int `json:"lru_cache_capacity,omitempty"`

	// MaxArchiveEntryBytes caps how many bytes of each leaf entry
	// cmd/docwire-probe reads and writes out; longer entries are
	// truncated. container.Stage does not consult it. Defaults to
	// 64 MiB.
	MaxArchiveEntryBytes int64 `json:"max_archive_entry_bytes,omitempty"`

	// ResourceSearchRoots lists resource directories, defaulting to
	// "share". resource.Resolver does not read it; it always uses the
	// "share" directory (or its ".path" redirect) beside the binary.
	ResourceSearchRoots []string `json:"resource_search_roots,omitempty"`

	// Detectors carries detector toggles (e.g. "signature",
	// "extension"). No code in this module reads it; the standard
	// bundle always runs every detector.
	Detectors ConfigGroup `json:"detectors,omitempty"`

	// Filters carries per-filter-name parameter groups, e.g.
	// {"folder_whitelist": {"names": ["Inbox"]}}.
	Filters map[string]ConfigGroup `json:"filters,omitempty"`

	// Writers carries per-writer-name parameter groups, e.g.
	// {"plaintext": {"eol": "\r\n"}}.
	Writers map[string]ConfigGroup `json:"writers,omitempty"`
}

// Load reads and unmarshals a PipelineConfig from path, then applies
// ConfigureDefaults.
func Load(path string) (*PipelineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &PipelineConfig{}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	cfg.ConfigureDefaults()
	return cfg, nil
}

// ConfigureDefaults fills in any zero-valued field with its default;
// explicit values are left untouched.
func (c *PipelineConfig) ConfigureDefaults() {
	if c.LRUCacheCapacity <= 0 {
		c.LRUCacheCapacity = defaultLRUCacheCapacity
	}
	if c.MaxArchiveEntryBytes <= 0 {
		c.MaxArchiveEntryBytes = defaultMaxArchiveEntryBytes
	}
	if len(c.ResourceSearchRoots) == 0 {
		c.ResourceSearchRoots = []string{defaultResourceSearchRoot}
	}
}

// ExtractConfig round-trips a ConfigGroup through JSON into a typed
// destination struct: marshal the generic bag, unmarshal into the
// typed target.
func ExtractConfig(group ConfigGroup, dst interface{}) error {
	data, err := json.Marshal(group)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// FilterGroup returns the named filter's ConfigGroup, or nil if absent.
func (c *PipelineConfig) FilterGroup(name string) ConfigGroup {
	if c.Filters == nil {
		return nil
	}
	return c.Filters[name]
}

// WriterGroup returns the named writer's ConfigGroup, or nil if absent.
func (c *PipelineConfig) WriterGroup(name string) ConfigGroup {
	if c.Writers == nil {
		return nil
	}
	return c.Writers[name]
}
