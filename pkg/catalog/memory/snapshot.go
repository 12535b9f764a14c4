package memory

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
)

// snapshot is the on-disk layout of a Store.
type snapshot struct {
	Identifiers     []*catalog.Identifier            `yaml:"identifiers,omitempty"`
	Equivalencies   []*catalog.Equivalency           `yaml:"equivalencies,omitempty"`
	Editions        []*catalog.Edition               `yaml:"editions,omitempty"`
	Contributors    []*catalog.Contributor           `yaml:"contributors,omitempty"`
	Contributions   []*catalog.Contribution          `yaml:"contributions,omitempty"`
	Subjects        []*catalog.Subject               `yaml:"subjects,omitempty"`
	Classifications []*catalog.Classification        `yaml:"classifications,omitempty"`
	Hyperlinks      []*catalog.Hyperlink             `yaml:"hyperlinks,omitempty"`
	Resources       []*catalog.Resource              `yaml:"resources,omitempty"`
	Representations []*catalog.Representation        `yaml:"representations,omitempty"`
	Libraries       []*catalog.Library               `yaml:"libraries,omitempty"`
	Collections     []*catalog.Collection            `yaml:"collections,omitempty"`
	LicensePools    []*catalog.LicensePool           `yaml:"license_pools,omitempty"`
	Mechanisms      []*catalog.DeliveryMechanism     `yaml:"delivery_mechanisms,omitempty"`
	PoolMechanisms  []*catalog.PoolDeliveryMechanism `yaml:"pool_delivery_mechanisms,omitempty"`
	Loans           []*catalog.Loan                  `yaml:"loans,omitempty"`
	Measurements    []*catalog.Measurement           `yaml:"measurements,omitempty"`
	Coverage        []*catalog.CoverageRecord        `yaml:"coverage,omitempty"`
}

// Save writes the whole store to path as YAML.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	snap := snapshot{
		Identifiers:     sorted(s.identifiers, nil),
		Equivalencies:   sorted(s.equivalencies, nil),
		Editions:        sorted(s.editions, nil),
		Contributors:    sorted(s.contributors, nil),
		Contributions:   sorted(s.contributions, nil),
		Subjects:        sorted(s.subjects, nil),
		Classifications: sorted(s.classifications, nil),
		Hyperlinks:      sorted(s.hyperlinks, nil),
		Resources:       sorted(s.resources, nil),
		Representations: sorted(s.representations, nil),
		Libraries:       sorted(s.libraries, nil),
		Collections:     sorted(s.collections, nil),
		LicensePools:    sorted(s.pools, nil),
		Mechanisms:      sorted(s.mechanisms, nil),
		PoolMechanisms:  sorted(s.poolMechanisms, nil),
		Loans:           sorted(s.loans, nil),
		Measurements:    sorted(s.measurements, nil),
		Coverage:        sorted(s.coverage, nil),
	}
	data, err := yaml.Marshal(&snap)
	s.mu.RUnlock()
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load replaces the store's contents with the snapshot at path.
// A missing file leaves the store empty.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.WrapIO("read", path, err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return errors.WrapParse("yaml", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	index(s.identifiers, snap.Identifiers, func(v *catalog.Identifier) string { return v.ID })
	index(s.equivalencies, snap.Equivalencies, func(v *catalog.Equivalency) string { return v.ID })
	index(s.editions, snap.Editions, func(v *catalog.Edition) string { return v.ID })
	index(s.contributors, snap.Contributors, func(v *catalog.Contributor) string { return v.ID })
	index(s.contributions, snap.Contributions, func(v *catalog.Contribution) string { return v.ID })
	index(s.subjects, snap.Subjects, func(v *catalog.Subject) string { return v.ID })
	index(s.classifications, snap.Classifications, func(v *catalog.Classification) string { return v.ID })
	index(s.hyperlinks, snap.Hyperlinks, func(v *catalog.Hyperlink) string { return v.ID })
	index(s.resources, snap.Resources, func(v *catalog.Resource) string { return v.ID })
	index(s.representations, snap.Representations, func(v *catalog.Representation) string { return v.ID })
	index(s.libraries, snap.Libraries, func(v *catalog.Library) string { return v.ID })
	index(s.collections, snap.Collections, func(v *catalog.Collection) string { return v.ID })
	index(s.pools, snap.LicensePools, func(v *catalog.LicensePool) string { return v.ID })
	index(s.mechanisms, snap.Mechanisms, func(v *catalog.DeliveryMechanism) string { return v.ID })
	index(s.poolMechanisms, snap.PoolMechanisms, func(v *catalog.PoolDeliveryMechanism) string { return v.ID })
	index(s.loans, snap.Loans, func(v *catalog.Loan) string { return v.ID })
	index(s.measurements, snap.Measurements, func(v *catalog.Measurement) string { return v.ID })
	index(s.coverage, snap.Coverage, func(v *catalog.CoverageRecord) string { return v.ID })
	return nil
}

func index[T any](m map[string]*T, values []*T, id func(*T) string) {
	for _, v := range values {
		m[id(v)] = v
	}
}
