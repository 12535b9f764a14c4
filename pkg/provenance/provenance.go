// Package provenance records which source wrote which value to which
// field of a catalog record, and when.
package provenance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
)

// ResourceType is the kind of record a field belongs to.
type ResourceType string

// Tracked resource types.
const (
	ResourceEdition     ResourceType = "edition"
	ResourceLicensePool ResourceType = "license_pool"
	ResourceContributor ResourceType = "contributor"
)

// Provenance is one write to a field.
type Provenance struct {
	Source        string   `yaml:"source"`
	Field         string   `yaml:"field"`
	Value         any      `yaml:"value"`
	PreviousValue any      `yaml:"previous_value,omitempty"`
	Timestamp     utc.Time `yaml:"timestamp"`
	Reason        string   `yaml:"reason,omitempty"`
}

// Map holds provenance keyed by "resourceType:resourceID:field".
type Map map[string][]Provenance

// Tracker records provenance during a merge.
type Tracker interface {
	// Track records a write to field of the given resource.
	Track(resourceType ResourceType, resourceID string, field string, p Provenance)

	// FindByField returns the writes to one field, oldest first.
	FindByField(resourceType ResourceType, resourceID string, field string) []Provenance

	// FindByResource returns the writes to every field of a resource.
	FindByResource(resourceType ResourceType, resourceID string) map[string][]Provenance

	// Map returns a copy of everything tracked.
	Map() Map

	// Clear forgets everything.
	Clear()
}

type tracker struct {
	mu         sync.RWMutex
	provenance Map
	enabled    bool
}

// NewTracker creates a tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{provenance: make(Map), enabled: enabled}
}

func (t *tracker) Track(resourceType ResourceType, resourceID string, field string, p Provenance) {
	if !t.enabled {
		return
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = utc.Now()
	}
	if p.Field == "" {
		p.Field = field
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := makeKey(resourceType, resourceID, field)
	t.provenance[key] = append(t.provenance[key], p)
}

func (t *tracker) FindByField(resourceType ResourceType, resourceID string, field string) []Provenance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Provenance(nil), t.provenance[makeKey(resourceType, resourceID, field)]...)
}

func (t *tracker) FindByResource(resourceType ResourceType, resourceID string) map[string][]Provenance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make(map[string][]Provenance)
	prefix := string(resourceType) + ":" + resourceID + ":"
	for key, history := range t.provenance {
		if field, ok := strings.CutPrefix(key, prefix); ok {
			result[field] = append([]Provenance(nil), history...)
		}
	}
	return result
}

func (t *tracker) Map() Map {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make(Map, len(t.provenance))
	for k, v := range t.provenance {
		result[k] = append([]Provenance(nil), v...)
	}
	return result
}

func (t *tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.provenance = make(Map)
}

func makeKey(resourceType ResourceType, resourceID, field string) string {
	return fmt.Sprintf("%s:%s:%s", resourceType, resourceID, field)
}

// Report groups provenance by resource.
type Report struct {
	Resources map[string]ResourceProvenance `yaml:"resources"`
}

// ResourceProvenance is the provenance of one record.
type ResourceProvenance struct {
	Type   ResourceType     `yaml:"type"`
	ID     string           `yaml:"id"`
	Fields map[string]Field `yaml:"fields"`
}

// Field is the write history of one field, newest first.
type Field struct {
	Current Provenance   `yaml:"current"`
	History []Provenance `yaml:"history,omitempty"`
	// Sources lists every source that ever wrote the field.
	Sources []string `yaml:"sources"`
}

// GenerateReport groups a Map by resource.
func GenerateReport(m Map) *Report {
	report := &Report{Resources: make(map[string]ResourceProvenance)}
	for key, history := range m {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		resourceKey := parts[0] + ":" + parts[1]
		resource, ok := report.Resources[resourceKey]
		if !ok {
			resource = ResourceProvenance{
				Type:   ResourceType(parts[0]),
				ID:     parts[1],
				Fields: make(map[string]Field),
			}
		}

		sorted := append([]Provenance(nil), history...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Time.After(sorted[j].Timestamp.Time)
		})
		field := Field{History: sorted}
		if len(sorted) > 0 {
			field.Current = sorted[0]
		}
		seen := make(map[string]bool)
		for _, p := range sorted {
			if !seen[p.Source] {
				seen[p.Source] = true
				field.Sources = append(field.Sources, p.Source)
			}
		}
		sort.Strings(field.Sources)

		resource.Fields[parts[2]] = field
		report.Resources[resourceKey] = resource
	}
	return report
}

// String renders the report for a terminal.
func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	keys := make([]string, 0, len(r.Resources))
	for key := range r.Resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		resource := r.Resources[key]
		fmt.Fprintf(&sb, "%s: %s\n", resource.Type, resource.ID)
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		fields := make([]string, 0, len(resource.Fields))
		for name := range resource.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, name := range fields {
			f := resource.Fields[name]
			fmt.Fprintf(&sb, "  %s: %v (from %s)\n", name, f.Current.Value, f.Current.Source)
			for i, p := range f.History[min(1, len(f.History)):] {
				if i >= 3 {
					fmt.Fprintf(&sb, "      ... and %d more\n", len(f.History)-1-i)
					break
				}
				fmt.Fprintf(&sb, "      was %v from %s at %s\n", p.Value, p.Source, p.Timestamp.Format("2006-01-02 15:04:05"))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// File is the on-disk form of a provenance map.
type File struct {
	Provenance Map `yaml:"provenance"`
}

// Save writes m to path as YAML.
func Save(path string, m Map) error {
	data, err := yaml.Marshal(File{Provenance: m})
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads a provenance file. A missing file is not an error and
// yields nil.
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &f, nil
}
