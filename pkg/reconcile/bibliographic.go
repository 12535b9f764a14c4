package reconcile

import (
	"context"
	"slices"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/internal/utils/ptr"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/provenance"
)

// ApplyMetadata merges rec into edition and reports whether any core
// field of the edition changed, contributors included. A record that
// names a different primary identifier than the edition's is an
// IdentityMismatchError: this never moves a record onto another edition.
//
// Unless the policy forces it, a record no newer than the last one
// applied from the same source is ignored.
func (r *Reconciler) ApplyMetadata(ctx context.Context, rec *metadata.Metadata, edition *catalog.Edition, collection *catalog.Collection, policy *metadata.ReplacementPolicy) (*catalog.Edition, bool, error) {
	policy = policyOrDefault(policy)
	source := rec.DataSource
	if source == "" {
		source = edition.DataSource
	}

	identifier, err := r.store.Identifier(ctx, edition.PrimaryIdentifierID)
	if err != nil {
		return nil, false, errors.WrapResource("fetch", "identifier", edition.PrimaryIdentifierID, err)
	}
	if rec.PrimaryIdentifier != nil && !rec.PrimaryIdentifier.Matches(identifier) {
		return nil, false, errors.NewIdentityMismatchError(identifier.String(), rec.PrimaryIdentifier.String())
	}
	ctx = logging.WithIdentifier(logging.WithSource(ctx, source), identifier.String())
	logger := logging.FromContext(ctx)

	if rec.DataSourceLastUpdated != nil && !policy.EvenIfNotApparentlyUpdated {
		coverage, err := r.store.Coverage(ctx, identifier.ID, source, constants.OperationApplyMetadata)
		switch {
		case errors.IsNotFound(err):
		case err != nil:
			return nil, false, err
		case coverage.Timestamp != nil && !coverage.Timestamp.Time.Before(rec.DataSourceLastUpdated.Time):
			logger.Debug().Msg("record has not changed since it was last applied")
			return edition, false, nil
		}
	}

	if rec.PermanentWorkID == "" && r.canonicalizer != nil {
		if _, err := r.CalculatePermanentWorkID(ctx, rec); err != nil {
			return nil, false, err
		}
	}

	logger.Info().Str("title", rec.Title).Msg("applying metadata to edition")
	changed := r.applyFields(rec, edition, source)

	contributorsChanged, err := r.updateContributions(ctx, rec, edition, source, policy.Contributions)
	if err != nil {
		return nil, false, err
	}
	changed = changed || contributorsChanged

	if err := r.updateEquivalencies(ctx, rec, identifier, source); err != nil {
		return nil, false, err
	}
	if err := r.updateSubjects(ctx, rec, identifier, source, policy.Subjects); err != nil {
		return nil, false, err
	}
	hyperlinks, err := r.updateLinks(ctx, rec, identifier, source, policy.Links)
	if err != nil {
		return nil, false, err
	}

	for _, m := range rec.Measurements {
		err := r.store.AddMeasurement(ctx, &catalog.Measurement{
			IdentifierID: identifier.ID,
			DataSource:   source,
			Quantity:     m.Quantity,
			Value:        m.Value,
			Weight:       m.Weight,
			TakenAt:      m.TakenAt,
		})
		if err != nil {
			return nil, false, errors.WrapResource("create", "measurement", m.Quantity, err)
		}
	}

	presentationChanged, err := catalog.CalculatePresentation(ctx, r.store, edition, policy.Presentation)
	if err != nil {
		return nil, false, err
	}
	changed = changed || presentationChanged

	if edition.SortAuthor == "" || edition.SortAuthor == constants.UnknownAuthor {
		// We may know the author's display name without being able to
		// turn it into a contributor.
		if primary := rec.PrimaryAuthor(); primary != nil {
			logger.Info().
				Str("sort_name", primary.SortName).
				Str("display_name", primary.DisplayName).
				Msg("no contributors, setting edition author directly")
			if primary.SortName != "" {
				edition.SortAuthor = primary.SortName
			}
			if primary.DisplayName != "" {
				edition.Author = primary.DisplayName
			}
			if err := r.store.UpdateEdition(ctx, edition); err != nil {
				return nil, false, errors.WrapResource("update", "edition", edition.ID, err)
			}
			changed = true
		}
	}

	if rec.Circulation != nil {
		circulation := *rec.Circulation
		if circulation.PrimaryIdentifier == nil {
			circulation.PrimaryIdentifier = &metadata.IdentifierData{Type: identifier.Type, Identifier: identifier.Value, Weight: 1}
		}
		if circulation.DataSource == "" {
			circulation.DataSource = source
		}
		if _, _, err := r.ApplyCirculation(ctx, &circulation, collection, policy); err != nil {
			return nil, false, err
		}
	}

	if policy.Mirror != nil {
		owner, err := r.EditionOwner(ctx, edition)
		if err != nil {
			return nil, false, err
		}
		for i, link := range rec.Links {
			if err := r.MirrorLink(ctx, owner, source, link, hyperlinks[i], policy); err != nil {
				return nil, false, err
			}
		}
	} else {
		for i, link := range rec.Links {
			if link.Thumbnail == nil {
				continue
			}
			if err := r.makeThumbnail(ctx, identifier, source, link, hyperlinks[i]); err != nil {
				return nil, false, err
			}
		}
	}

	if _, err := r.store.UpsertCoverage(ctx, identifier.ID, source, constants.OperationApplyMetadata, rec.DataSourceLastUpdated); err != nil {
		return nil, false, errors.WrapResource("update", "coverage record", identifier.String(), err)
	}
	return edition, changed, nil
}

// applyFields overwrites the edition's descriptive fields with every
// non-empty value in rec. The NONE and -1 sentinels clear a field.
func (r *Reconciler) applyFields(rec *metadata.Metadata, edition *catalog.Edition, source string) bool {
	changed := false
	str := func(field string, dst *string, value string) {
		if value == "" {
			return
		}
		if value == constants.NoValue {
			value = ""
		}
		if value == *dst {
			return
		}
		r.track(provenance.ResourceEdition, edition.ID, source, field, *dst, value)
		*dst = value
		changed = true
	}
	date := func(field string, dst **utc.Time, value *utc.Time) {
		if value == nil || (*dst != nil && (*dst).Time.Equal(value.Time)) {
			return
		}
		r.track(provenance.ResourceEdition, edition.ID, source, field, *dst, value)
		v := *value
		*dst = &v
		changed = true
	}

	str("title", &edition.Title, rec.Title)
	str("subtitle", &edition.Subtitle, rec.Subtitle)
	str("sort_title", &edition.SortTitle, rec.SortTitle)
	str("language", &edition.Language, rec.Language)
	str("medium", &edition.Medium, rec.Medium)
	str("series", &edition.Series, rec.Series)
	str("publisher", &edition.Publisher, rec.Publisher)
	str("imprint", &edition.Imprint, rec.Imprint)
	str("permanent_work_id", &edition.PermanentWorkID, rec.PermanentWorkID)
	date("issued", &edition.Issued, rec.Issued)
	date("published", &edition.Published, rec.Published)

	if pos := rec.SeriesPosition; pos != nil {
		switch {
		case *pos == constants.NoNumber:
			if edition.SeriesPosition != nil {
				r.track(provenance.ResourceEdition, edition.ID, source, "series_position", *edition.SeriesPosition, nil)
				edition.SeriesPosition = nil
				changed = true
			}
		case !ptr.Equal(edition.SeriesPosition, pos):
			r.track(provenance.ResourceEdition, edition.ID, source, "series_position", edition.SeriesPosition, *pos)
			v := *pos
			edition.SeriesPosition = &v
			changed = true
		}
	}
	return changed
}

// updateContributions credits rec's contributors on edition. With
// replace, this source's earlier contributions are removed first.
func (r *Reconciler) updateContributions(ctx context.Context, rec *metadata.Metadata, edition *catalog.Edition, source string, replace bool) (bool, error) {
	logger := logging.FromContext(ctx)
	existing, err := r.store.Contributions(ctx, edition.ID)
	if err != nil {
		return false, err
	}
	before := contributorIDs(existing)

	if replace {
		for _, c := range existing {
			if c.DataSource != source {
				continue
			}
			if err := r.store.DeleteContribution(ctx, c.ID); err != nil {
				return false, errors.WrapResource("delete", "contribution", c.ID, err)
			}
		}
	}

	for i := range rec.Contributors {
		data := &rec.Contributors[i]
		if _, err := data.FindSortName(ctx, r.store, rec.Identifiers, r.canonicalizer); err != nil {
			if !errors.IsValidationError(err) {
				return false, err
			}
		}
		if !data.Registrable() {
			logger.Info().Str("display_name", data.DisplayName).Msg("not registering contributor with no sort name, LC or VIAF")
			continue
		}

		contributor, _, err := r.store.FindOrCreateContributor(ctx, data.Lookup())
		if err != nil {
			return false, errors.WrapResource("create", "contributor", data.SortName, err)
		}
		for _, role := range data.Roles {
			if _, _, err := r.store.AddContribution(ctx, edition.ID, contributor.ID, role, source); err != nil {
				return false, errors.WrapResource("create", "contribution", contributor.ID, err)
			}
		}
		if data.Apply(contributor) {
			r.track(provenance.ResourceContributor, contributor.ID, source, "contributor", nil, data.SortName)
			if err := r.store.UpdateContributor(ctx, contributor); err != nil {
				return false, errors.WrapResource("update", "contributor", contributor.ID, err)
			}
		}
	}

	after, err := r.store.Contributions(ctx, edition.ID)
	if err != nil {
		return false, err
	}
	changed := !replace && len(rec.Contributors) > 0
	return changed || !slices.Equal(before, contributorIDs(after)), nil
}

func contributorIDs(contributions []*catalog.Contribution) []string {
	ids := make([]string, len(contributions))
	for i, c := range contributions {
		ids[i] = c.ContributorID
	}
	slices.Sort(ids)
	return ids
}

// updateEquivalencies ties every secondary identifier to the primary one.
func (r *Reconciler) updateEquivalencies(ctx context.Context, rec *metadata.Metadata, identifier *catalog.Identifier, source string) error {
	for _, id := range rec.Identifiers {
		if id.Identifier == "" || id.Matches(identifier) {
			continue
		}
		other, _, err := id.Load(ctx, r.store)
		if err != nil {
			return errors.WrapResource("create", "identifier", id.String(), err)
		}
		strength := id.Weight
		if strength == 0 {
			strength = 1
		}
		if _, err := r.store.AddEquivalency(ctx, identifier.ID, other.ID, source, strength); err != nil {
			return errors.WrapResource("create", "equivalency", id.String(), err)
		}
	}
	return nil
}

// updateSubjects classifies identifier under rec's subjects. With
// replace, this source's classifications that rec no longer claims are
// deleted. Classifications already present are left alone.
func (r *Reconciler) updateSubjects(ctx context.Context, rec *metadata.Metadata, identifier *catalog.Identifier, source string, replace bool) error {
	var order []metadata.SubjectKey
	pending := make(map[metadata.SubjectKey]metadata.SubjectData, len(rec.Subjects))
	for _, s := range rec.Subjects {
		key := s.Key()
		if _, ok := pending[key]; !ok {
			order = append(order, key)
		}
		pending[key] = s
	}

	existing, err := r.store.Classifications(ctx, identifier.ID)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if c.DataSource != source {
			continue
		}
		subject, err := r.store.Subject(ctx, c.SubjectID)
		if err != nil {
			return err
		}
		key := metadata.SubjectKey{Type: subject.Type, Identifier: subject.Identifier, Name: subject.Name, Weight: c.Weight}
		if _, ok := pending[key]; ok {
			delete(pending, key)
			continue
		}
		if replace {
			if err := r.store.DeleteClassification(ctx, c.ID); err != nil {
				return errors.WrapResource("delete", "classification", c.ID, err)
			}
		}
	}

	for _, key := range order {
		s, ok := pending[key]
		if !ok {
			continue
		}
		subject, _, err := r.store.FindOrCreateSubject(ctx, s.Type, s.Identifier, s.Name)
		if err != nil {
			return errors.WrapResource("create", "subject", s.Type+"/"+s.Identifier, err)
		}
		if _, err := r.store.Classify(ctx, identifier.ID, subject.ID, source, s.Weight); err != nil {
			return errors.WrapResource("create", "classification", subject.ID, err)
		}
	}
	return nil
}

// updateLinks attaches rec's links to identifier, returning the
// hyperlink for each link in order. With replace, every hyperlink this
// source put on the identifier is dropped first.
func (r *Reconciler) updateLinks(ctx context.Context, rec *metadata.Metadata, identifier *catalog.Identifier, source string, replace bool) ([]*catalog.Hyperlink, error) {
	if replace {
		existing, err := r.store.Hyperlinks(ctx, identifier.ID)
		if err != nil {
			return nil, err
		}
		for _, h := range existing {
			if h.DataSource != source {
				continue
			}
			if err := r.store.DeleteHyperlink(ctx, h.ID); err != nil {
				return nil, errors.WrapResource("delete", "hyperlink", h.ID, err)
			}
		}
	}

	hyperlinks := make([]*catalog.Hyperlink, len(rec.Links))
	for i, link := range rec.Links {
		hyperlink, resource, err := catalog.AddLink(ctx, r.store, identifier, source, linkSpec(link))
		if err != nil {
			return nil, errors.WrapResource("create", "hyperlink", link.Href, err)
		}
		if link.RightsURI != "" && resource.RightsURI != link.RightsURI {
			resource.RightsURI = link.RightsURI
			if err := r.store.UpdateResource(ctx, resource); err != nil {
				return nil, errors.WrapResource("update", "resource", resource.ID, err)
			}
		}
		hyperlinks[i] = hyperlink
	}
	return hyperlinks, nil
}

// makeThumbnail connects an image to the thumbnail its link declares,
// without fetching either.
func (r *Reconciler) makeThumbnail(ctx context.Context, identifier *catalog.Identifier, source string, link metadata.LinkData, hyperlink *catalog.Hyperlink) error {
	thumb := link.Thumbnail
	if thumb.Rel != constants.RelThumbnailImage {
		logging.FromContext(ctx).Warn().Str("rel", thumb.Rel).Str("href", link.Href).Msg("thumbnail link has the wrong relation")
		return nil
	}

	image, err := r.store.Resource(ctx, hyperlink.ResourceID)
	if err != nil {
		return err
	}
	imageRep, err := r.representation(ctx, image)
	if err != nil {
		return err
	}

	if thumb.Href == link.Href {
		// The image is its own thumbnail.
		imageRep.ImageHeight = constants.MaxThumbnailHeight
		return r.store.UpdateRepresentation(ctx, imageRep)
	}

	_, thumbResource, err := catalog.AddLink(ctx, r.store, identifier, source, linkSpec(*thumb))
	if err != nil {
		return errors.WrapResource("create", "hyperlink", thumb.Href, err)
	}
	thumbRep, err := r.representation(ctx, thumbResource)
	if err != nil {
		return err
	}
	if thumbRep.ThumbnailOfID == imageRep.ID {
		return nil
	}
	thumbRep.ThumbnailOfID = imageRep.ID
	return r.store.UpdateRepresentation(ctx, thumbRep)
}

// representation returns the resource's representation, creating an
// unfetched one when there is none yet.
func (r *Reconciler) representation(ctx context.Context, resource *catalog.Resource) (*catalog.Representation, error) {
	if resource.RepresentationID != "" {
		return r.store.Representation(ctx, resource.RepresentationID)
	}
	rep, _, err := r.store.FindOrCreateRepresentation(ctx, resource.URL)
	if err != nil {
		return nil, errors.WrapResource("create", "representation", resource.URL, err)
	}
	resource.RepresentationID = rep.ID
	if err := r.store.UpdateResource(ctx, resource); err != nil {
		return nil, errors.WrapResource("update", "resource", resource.ID, err)
	}
	return rep, nil
}
