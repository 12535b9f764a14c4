package catalog

import (
	"maps"
	"slices"
)

// copyOf returns a pointer to a copy of *p, or nil.
func copyOf[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a copy of the identifier.
func (i *Identifier) Clone() *Identifier { return copyOf(i) }

// Clone returns a copy of the equivalency.
func (e *Equivalency) Clone() *Equivalency { return copyOf(e) }

// Clone returns a copy of the library.
func (l *Library) Clone() *Library { return copyOf(l) }

// Clone returns a deep copy of the collection including its library IDs.
func (c *Collection) Clone() *Collection {
	out := copyOf(c)
	if out != nil {
		out.LibraryIDs = slices.Clone(c.LibraryIDs)
	}
	return out
}

// Clone returns a deep copy of the edition. Extra is copied one level deep.
func (e *Edition) Clone() *Edition {
	out := copyOf(e)
	if out == nil {
		return nil
	}
	out.SeriesPosition = copyOf(e.SeriesPosition)
	out.Issued = copyOf(e.Issued)
	out.Published = copyOf(e.Published)
	out.Extra = maps.Clone(e.Extra)
	return out
}

// Clone returns a deep copy of the contributor. Extra is copied one level deep.
func (c *Contributor) Clone() *Contributor {
	out := copyOf(c)
	if out == nil {
		return nil
	}
	out.Aliases = slices.Clone(c.Aliases)
	out.Extra = maps.Clone(c.Extra)
	return out
}

// Clone returns a copy of the contribution.
func (c *Contribution) Clone() *Contribution { return copyOf(c) }

// Clone returns a deep copy of the license pool.
func (p *LicensePool) Clone() *LicensePool {
	out := copyOf(p)
	if out == nil {
		return nil
	}
	out.AvailabilityTime = copyOf(p.AvailabilityTime)
	out.LastChecked = copyOf(p.LastChecked)
	return out
}

// Clone returns a copy of the delivery mechanism.
func (m *DeliveryMechanism) Clone() *DeliveryMechanism { return copyOf(m) }

// Clone returns a copy of the pool delivery mechanism.
func (m *PoolDeliveryMechanism) Clone() *PoolDeliveryMechanism { return copyOf(m) }

// Clone returns a copy of the loan.
func (l *Loan) Clone() *Loan { return copyOf(l) }

// Clone returns a copy of the hyperlink.
func (h *Hyperlink) Clone() *Hyperlink { return copyOf(h) }

// Clone returns a copy of the resource.
func (r *Resource) Clone() *Resource { return copyOf(r) }

// Clone returns a deep copy of the representation including its content.
func (r *Representation) Clone() *Representation {
	out := copyOf(r)
	if out == nil {
		return nil
	}
	out.Content = slices.Clone(r.Content)
	out.FetchedAt = copyOf(r.FetchedAt)
	out.MirroredAt = copyOf(r.MirroredAt)
	return out
}

// Clone returns a copy of the subject.
func (s *Subject) Clone() *Subject { return copyOf(s) }

// Clone returns a copy of the classification.
func (c *Classification) Clone() *Classification { return copyOf(c) }

// Clone returns a deep copy of the measurement.
func (m *Measurement) Clone() *Measurement {
	out := copyOf(m)
	if out != nil {
		out.Normalized = copyOf(m.Normalized)
	}
	return out
}

// Clone returns a deep copy of the coverage record.
func (c *CoverageRecord) Clone() *CoverageRecord {
	out := copyOf(c)
	if out != nil {
		out.Timestamp = copyOf(c.Timestamp)
	}
	return out
}
