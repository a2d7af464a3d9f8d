// Package profile turns a validated deployment into per-service
// configuration files staged on disk.
package profile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rzbill/keel/pkg/types"
)

// ServiceType names a platform service.
type ServiceType string

const (
	Gate        ServiceType = "gate"
	Deck        ServiceType = "deck"
	Orca        ServiceType = "orca"
	Clouddriver ServiceType = "clouddriver"
	Front50     ServiceType = "front50"
	Echo        ServiceType = "echo"
	Igor        ServiceType = "igor"
	Fiat        ServiceType = "fiat"
	Kayenta     ServiceType = "kayenta"
	Redis       ServiceType = "redis"
)

// Profile is one generated file.
type Profile struct {
	Name string
	// Contents is the rendered text.
	Contents string
	// OutputFile is the path relative to the staging directory.
	OutputFile string
	Executable bool
	// RequiredFiles are local files the profile refers to.
	RequiredFiles []string
}

// ServiceSettings are the runtime settings of one service. Fields set in
// a user's service-settings file override the computed values.
type ServiceSettings struct {
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	Scheme   string            `yaml:"scheme,omitempty"`
	Enabled  bool              `yaml:"enabled"`
	Address  string            `yaml:"address,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Artifact string            `yaml:"artifact,omitempty"`
}

// BaseURL returns scheme://address:port.
func (s *ServiceSettings) BaseURL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	addr := s.Address
	if addr == "" {
		addr = s.Host
	}
	return fmt.Sprintf("%s://%s:%d", scheme, addr, s.Port)
}

// RuntimeSettings holds the settings of every service. Each type is set
// once per generation run.
type RuntimeSettings struct {
	mu       sync.RWMutex
	order    []ServiceType
	settings map[ServiceType]*ServiceSettings
}

// NewRuntimeSettings returns an empty set.
func NewRuntimeSettings() *RuntimeSettings {
	return &RuntimeSettings{settings: make(map[ServiceType]*ServiceSettings)}
}

// Set stores s for t. Setting a type twice is an error.
func (r *RuntimeSettings) Set(t ServiceType, s *ServiceSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[t]; ok {
		return types.Duplicatef("runtime settings for %s already set", t)
	}
	r.settings[t] = s
	r.order = append(r.order, t)
	return nil
}

// Get returns the settings of t.
func (r *RuntimeSettings) Get(t ServiceType) (*ServiceSettings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[t]
	return s, ok
}

// Types returns the service types in the order they were set.
func (r *RuntimeSettings) Types() []ServiceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ServiceType(nil), r.order...)
}

// All returns a copy of the settings keyed by type.
func (r *RuntimeSettings) All() map[ServiceType]ServiceSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ServiceType]ServiceSettings, len(r.settings))
	for t, s := range r.settings {
		out[t] = *s
	}
	return out
}

// ResolvedConfiguration is the result of one generation run.
type ResolvedConfiguration struct {
	RunID       string
	Deployment  string
	StagingPath string
	Settings    *RuntimeSettings
	Profiles    map[ServiceType][]*Profile
	// Overrides lists user files copied over the generated output.
	Overrides []string
}

// StagedFiles returns every generated output path in sorted order.
func (r *ResolvedConfiguration) StagedFiles() []string {
	var files []string
	for _, profiles := range r.Profiles {
		for _, p := range profiles {
			files = append(files, p.OutputFile)
		}
	}
	sort.Strings(files)
	return files
}
