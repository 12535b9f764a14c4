package memory

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
)

// Classifications

func (s *Store) FindOrCreateSubject(_ context.Context, typ, identifier, name string) (*catalog.Subject, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subjects {
		if sub.Type == typ && sub.Identifier == identifier && sub.Name == name {
			return sub.Clone(), false, nil
		}
	}
	sub := &catalog.Subject{ID: s.newID(), Type: typ, Identifier: identifier, Name: name}
	s.subjects[sub.ID] = sub
	return sub.Clone(), true, nil
}

func (s *Store) Subject(_ context.Context, id string) (*catalog.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.subjects, "subject", id)
}

func (s *Store) Classify(_ context.Context, identifierID, subjectID, source string, weight int) (*catalog.Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.classifications {
		if c.IdentifierID == identifierID && c.SubjectID == subjectID && c.DataSource == source {
			c.Weight = weight
			return c.Clone(), nil
		}
	}
	c := &catalog.Classification{ID: s.newID(), IdentifierID: identifierID, SubjectID: subjectID, DataSource: source, Weight: weight}
	s.classifications[c.ID] = c
	return c.Clone(), nil
}

func (s *Store) Classifications(_ context.Context, identifierID string) ([]*catalog.Classification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.classifications, func(c *catalog.Classification) bool { return c.IdentifierID == identifierID }), nil
}

func (s *Store) DeleteClassification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.classifications, "classification", id); err != nil {
		return err
	}
	delete(s.classifications, id)
	return nil
}

// Links

func (s *Store) FindOrCreateHyperlink(_ context.Context, identifierID, rel, source, resourceID string) (*catalog.Hyperlink, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.hyperlinks {
		if h.IdentifierID == identifierID && h.Rel == rel && h.DataSource == source && h.ResourceID == resourceID {
			return h.Clone(), false, nil
		}
	}
	h := &catalog.Hyperlink{ID: s.newID(), IdentifierID: identifierID, Rel: rel, DataSource: source, ResourceID: resourceID}
	s.hyperlinks[h.ID] = h
	return h.Clone(), true, nil
}

func (s *Store) Hyperlinks(_ context.Context, identifierID string) ([]*catalog.Hyperlink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.hyperlinks, func(h *catalog.Hyperlink) bool { return h.IdentifierID == identifierID }), nil
}

func (s *Store) DeleteHyperlink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.hyperlinks, "hyperlink", id); err != nil {
		return err
	}
	delete(s.hyperlinks, id)
	return nil
}

func (s *Store) FindOrCreateResource(_ context.Context, url, source string) (*catalog.Resource, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.resources {
		if r.URL == url {
			return r.Clone(), false, nil
		}
	}
	r := &catalog.Resource{ID: s.newID(), URL: url, DataSource: source}
	s.resources[r.ID] = r
	return r.Clone(), true, nil
}

func (s *Store) Resource(_ context.Context, id string) (*catalog.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.resources, "resource", id)
}

func (s *Store) UpdateResource(_ context.Context, r *catalog.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.resources, "resource", r.ID, r)
}

func (s *Store) FindOrCreateRepresentation(_ context.Context, url string) (*catalog.Representation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.representations {
		if r.URL == url {
			return r.Clone(), false, nil
		}
	}
	r := &catalog.Representation{ID: s.newID(), URL: url}
	s.representations[r.ID] = r
	return r.Clone(), true, nil
}

func (s *Store) Representation(_ context.Context, id string) (*catalog.Representation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.representations, "representation", id)
}

func (s *Store) UpdateRepresentation(_ context.Context, r *catalog.Representation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.representations, "representation", r.ID, r)
}

func (s *Store) Thumbnails(_ context.Context, id string) ([]*catalog.Representation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.representations, func(r *catalog.Representation) bool { return r.ThumbnailOfID == id }), nil
}

// Libraries and collections

func (s *Store) CreateLibrary(_ context.Context, name string) (*catalog.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.libraries {
		if l.Name == name {
			return nil, errors.NewAlreadyExistsError("library", name)
		}
	}
	l := &catalog.Library{ID: s.newID(), Name: name}
	s.libraries[l.ID] = l
	return l.Clone(), nil
}

func (s *Store) Library(_ context.Context, id string) (*catalog.Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.libraries, "library", id)
}

func (s *Store) CreateCollection(_ context.Context, name, source string, libraryIDs ...string) (*catalog.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		if c.Name == name {
			return nil, errors.NewAlreadyExistsError("collection", name)
		}
	}
	for _, id := range libraryIDs {
		if err := has(s.libraries, "library", id); err != nil {
			return nil, err
		}
	}
	c := &catalog.Collection{ID: s.newID(), Name: name, DataSource: source, LibraryIDs: append([]string(nil), libraryIDs...)}
	s.collections[c.ID] = c
	return c.Clone(), nil
}

func (s *Store) Collection(_ context.Context, id string) (*catalog.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.collections, "collection", id)
}

func (s *Store) CollectionByName(_ context.Context, name string) (*catalog.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.Name == name {
			return c.Clone(), nil
		}
	}
	return nil, errors.NewNotFoundError("collection", name)
}

// Circulation

func (s *Store) FindOrCreateLicensePool(_ context.Context, source, identifierID, collectionID string) (*catalog.LicensePool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.collections, "collection", collectionID); err != nil {
		return nil, false, err
	}
	for _, p := range s.pools {
		if p.DataSource == source && p.IdentifierID == identifierID && p.CollectionID == collectionID {
			return p.Clone(), false, nil
		}
	}
	p := &catalog.LicensePool{ID: s.newID(), DataSource: source, IdentifierID: identifierID, CollectionID: collectionID}
	s.pools[p.ID] = p
	return p.Clone(), true, nil
}

func (s *Store) LicensePool(_ context.Context, id string) (*catalog.LicensePool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.pools, "license pool", id)
}

func (s *Store) LicensePoolsForIdentifier(_ context.Context, identifierID string) ([]*catalog.LicensePool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.pools, func(p *catalog.LicensePool) bool { return p.IdentifierID == identifierID }), nil
}

func (s *Store) UpdateLicensePool(_ context.Context, p *catalog.LicensePool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.pools, "license pool", p.ID, p)
}

func (s *Store) FindOrCreateDeliveryMechanism(_ context.Context, contentType, drmScheme string) (*catalog.DeliveryMechanism, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mechanisms {
		if m.ContentType == contentType && m.DRMScheme == drmScheme {
			return m.Clone(), false, nil
		}
	}
	m := &catalog.DeliveryMechanism{ID: s.newID(), ContentType: contentType, DRMScheme: drmScheme}
	s.mechanisms[m.ID] = m
	return m.Clone(), true, nil
}

func (s *Store) DeliveryMechanism(_ context.Context, id string) (*catalog.DeliveryMechanism, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.mechanisms, "delivery mechanism", id)
}

func (s *Store) FindOrCreatePoolDeliveryMechanism(_ context.Context, source, identifierID, mechanismID string) (*catalog.PoolDeliveryMechanism, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.poolMechanisms {
		if m.DataSource == source && m.IdentifierID == identifierID && m.DeliveryMechanismID == mechanismID {
			return m.Clone(), false, nil
		}
	}
	m := &catalog.PoolDeliveryMechanism{ID: s.newID(), DataSource: source, IdentifierID: identifierID, DeliveryMechanismID: mechanismID}
	s.poolMechanisms[m.ID] = m
	return m.Clone(), true, nil
}

func (s *Store) PoolDeliveryMechanisms(_ context.Context, source, identifierID string) ([]*catalog.PoolDeliveryMechanism, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.poolMechanisms, func(m *catalog.PoolDeliveryMechanism) bool {
		return m.DataSource == source && m.IdentifierID == identifierID
	}), nil
}

func (s *Store) UpdatePoolDeliveryMechanism(_ context.Context, m *catalog.PoolDeliveryMechanism) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.poolMechanisms, "pool delivery mechanism", m.ID, m)
}

func (s *Store) DeletePoolDeliveryMechanism(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.poolMechanisms, "pool delivery mechanism", id); err != nil {
		return err
	}
	delete(s.poolMechanisms, id)
	return nil
}

func (s *Store) CreateLoan(_ context.Context, l *catalog.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := has(s.pools, "license pool", l.LicensePoolID); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = s.newID()
	}
	s.loans[l.ID] = l.Clone()
	return nil
}

func (s *Store) LoansFulfilledBy(_ context.Context, poolMechanismID string) ([]*catalog.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.loans, func(l *catalog.Loan) bool { return l.FulfillmentID == poolMechanismID }), nil
}

func (s *Store) UpdateLoan(_ context.Context, l *catalog.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.loans, "loan", l.ID, l)
}

// Measurements

func (s *Store) AddMeasurement(_ context.Context, m *catalog.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = s.newID()
	}
	m.IsMostRecent = true
	for _, other := range s.measurements {
		if other.IdentifierID != m.IdentifierID || other.DataSource != m.DataSource || other.Quantity != m.Quantity {
			continue
		}
		if other.TakenAt.Time.After(m.TakenAt.Time) {
			m.IsMostRecent = false
		} else {
			other.IsMostRecent = false
		}
	}
	s.measurements[m.ID] = m.Clone()
	return nil
}

func (s *Store) Measurements(_ context.Context, identifierID string) ([]*catalog.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.measurements, func(m *catalog.Measurement) bool { return m.IdentifierID == identifierID }), nil
}

func (s *Store) UpdateMeasurement(_ context.Context, m *catalog.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.measurements, "measurement", m.ID, m)
}

// Coverage

func (s *Store) Coverage(_ context.Context, identifierID, source, operation string) (*catalog.CoverageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coverage {
		if c.IdentifierID == identifierID && c.DataSource == source && c.Operation == operation {
			return c.Clone(), nil
		}
	}
	return nil, errors.NewNotFoundError("coverage record", identifierID+"/"+source+"/"+operation)
}

// UpsertCoverage stamps the record with timestamp, or with now when timestamp is nil.
func (s *Store) UpsertCoverage(_ context.Context, identifierID, source, operation string, timestamp *utc.Time) (*catalog.CoverageRecord, error) {
	stamp := utc.Now()
	if timestamp != nil {
		stamp = *timestamp
	}
	timestamp = &stamp
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coverage {
		if c.IdentifierID == identifierID && c.DataSource == source && c.Operation == operation {
			c.Timestamp = timestamp
			return c.Clone(), nil
		}
	}
	c := &catalog.CoverageRecord{ID: s.newID(), IdentifierID: identifierID, DataSource: source, Operation: operation, Timestamp: timestamp}
	s.coverage[c.ID] = c
	return c.Clone(), nil
}
