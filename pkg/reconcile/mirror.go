package reconcile

import (
	"context"
	"path"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/mirror"
)

// OwnerKind says what a mirrored link hangs off.
type OwnerKind int

const (
	OwnerPool OwnerKind = iota
	OwnerEdition
)

func (k OwnerKind) String() string {
	if k == OwnerEdition {
		return "edition"
	}
	return "license pool"
}

// Owner is whatever a mirrored link belongs to, reduced to what the
// mirror workflow needs.
type Owner struct {
	Kind       OwnerKind
	Identifier *catalog.Identifier
	// Pools are suppressed when open-access content cannot be mirrored.
	Pools []*catalog.LicensePool
	// Title names mirrored books.
	Title string
}

// PoolOwner resolves the owner for links found on a pool's circulation
// data. The pool may be nil when no collection was involved.
func (r *Reconciler) PoolOwner(ctx context.Context, pool *catalog.LicensePool, identifier *catalog.Identifier) (Owner, error) {
	owner := Owner{Kind: OwnerPool, Identifier: identifier}
	if pool == nil {
		return owner, nil
	}
	owner.Pools = []*catalog.LicensePool{pool}
	edition, err := r.store.LookupEdition(ctx, pool.DataSource, identifier.ID)
	switch {
	case errors.IsNotFound(err):
	case err != nil:
		return Owner{}, err
	default:
		owner.Title = edition.Title
	}
	return owner, nil
}

// EditionOwner resolves the owner for links found on an edition.
func (r *Reconciler) EditionOwner(ctx context.Context, edition *catalog.Edition) (Owner, error) {
	identifier, err := r.store.Identifier(ctx, edition.PrimaryIdentifierID)
	if err != nil {
		return Owner{}, errors.WrapResource("fetch", "identifier", edition.PrimaryIdentifierID, err)
	}
	pools, err := catalog.EditionLicensePools(ctx, r.store, edition)
	if err != nil {
		return Owner{}, err
	}
	return Owner{Kind: OwnerEdition, Identifier: identifier, Pools: pools, Title: edition.Title}, nil
}

// MirrorLink copies the content behind link into mirror storage and,
// for cover images, makes a thumbnail. Fetch and mirror failures are
// recorded on the representation; for open-access books they also
// suppress the owner's pools. Only store failures are returned.
func (r *Reconciler) MirrorLink(ctx context.Context, owner Owner, source string, link metadata.LinkData, hyperlink *catalog.Hyperlink, policy *metadata.ReplacementPolicy) error {
	policy = policyOrDefault(policy)
	logger := logging.FromContext(ctx)

	if !constants.IsMirroredRel(link.Rel) {
		logger.Debug().Str("rel", link.Rel).Msg("relation is not mirrored")
		return nil
	}
	if link.RightsURI == constants.RightsInCopyright {
		logger.Debug().Str("href", link.Href).Msg("not mirroring in-copyright content")
		return nil
	}
	if policy.Mirror == nil {
		return nil
	}
	if owner.Identifier == nil || hyperlink.IdentifierID != owner.Identifier.ID {
		logger.Warn().
			Str("owner", owner.Kind.String()).
			Str("owner_identifier", owner.Identifier.String()).
			Str("link_identifier", hyperlink.IdentifierID).
			Msg("insane: link and its owner have different identifiers, not mirroring")
		return nil
	}

	resource, err := r.store.Resource(ctx, hyperlink.ResourceID)
	if err != nil {
		return errors.WrapResource("fetch", "resource", hyperlink.ResourceID, err)
	}
	url := resource.URL

	maxAge := mirror.AnyAge
	if policy.LinkContent {
		maxAge = 0
	}
	rep, err := mirror.Get(ctx, r.store, policy.HTTPGet, url, maxAge)
	if err != nil {
		return errors.WrapResource("fetch", "representation", url, err)
	}
	if resource.RepresentationID != rep.ID {
		resource.RepresentationID = rep.ID
		if err := r.store.UpdateResource(ctx, resource); err != nil {
			return errors.WrapResource("update", "resource", resource.ID, err)
		}
	}

	openAccess := link.Rel == constants.RelOpenAccessDownload
	if rep.FetchException != "" {
		if openAccess {
			return r.suppress(ctx, owner, "Fetch exception: "+rep.FetchException)
		}
		return nil
	}
	if rep.StatusCode == 304 && rep.MirrorURL != "" {
		logger.Debug().Str("url", url).Msg("not modified since last mirror")
		return nil
	}
	if rep.StatusCode < 200 || rep.StatusCode >= 400 {
		logger.Info().Str("url", url).Int("status", rep.StatusCode).Msg("not mirroring unsuccessful response")
		return nil
	}

	if policy.ContentModifier != nil {
		if err := policy.ContentModifier(rep); err != nil {
			rep.MirrorException = err.Error()
			if err := r.store.UpdateRepresentation(ctx, rep); err != nil {
				return err
			}
			if openAccess {
				return r.suppress(ctx, owner, "Mirror exception: "+rep.MirrorException)
			}
			return nil
		}
	}

	if rep.MediaType == "" {
		rep.MediaType = link.MediaType
	}
	if !constants.IsMirrorableMediaType(rep.MediaType) {
		logger.Info().Str("url", url).Str("media_type", rep.MediaType).Msg("media type is not mirrorable")
		return r.store.UpdateRepresentation(ctx, rep)
	}

	var target string
	if openAccess && owner.Title != "" {
		target = policy.Mirror.BookURL(owner.Identifier, source, owner.Title, constants.FileExtension(rep.MediaType))
	} else {
		target = policy.Mirror.CoverImageURL(source, owner.Identifier, filename(url, rep.MediaType))
	}

	mirrored := mirror.Mirror(ctx, policy.Mirror, rep, target)
	if !mirrored && openAccess {
		if err := r.store.UpdateRepresentation(ctx, rep); err != nil {
			return err
		}
		return r.suppress(ctx, owner, "Mirror exception: "+rep.MirrorException)
	}
	if mirrored {
		logger.Info().Str("url", url).Str("mirror_url", target).Msg("mirrored representation")
	}

	// A cover that failed to mirror still gets a thumbnail from the fetched bytes.
	if link.Rel == constants.RelImage && policy.Scaler != nil {
		if err := r.thumbnail(ctx, owner, source, url, rep, policy); err != nil {
			return err
		}
	}
	if openAccess {
		// Books are served from the mirror; images stay for rescaling.
		rep.Content = nil
	}
	return r.store.UpdateRepresentation(ctx, rep)
}

func (r *Reconciler) thumbnail(ctx context.Context, owner Owner, source, url string, rep *catalog.Representation, policy *metadata.ReplacementPolicy) error {
	logger := logging.FromContext(ctx)
	thumb, err := policy.Scaler.Scale(ctx, rep.Content, constants.MaxThumbnailWidth, constants.MaxThumbnailHeight)
	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("could not scale cover image")
		return nil
	}
	if !thumb.Resized {
		// The image is already thumbnail-sized.
		rep.ImageWidth = thumb.Width
		rep.ImageHeight = thumb.Height
		return nil
	}

	name := filename(url, rep.MediaType)
	name = strings.TrimSuffix(name, path.Ext(name)) + "-thumbnail" + constants.FileExtension(thumb.MediaType)
	target := policy.Mirror.CoverImageURL(source, owner.Identifier, name)

	thumbRep, _, err := r.store.FindOrCreateRepresentation(ctx, target)
	if err != nil {
		return errors.WrapResource("create", "representation", target, err)
	}
	now := utc.Now()
	thumbRep.Content = thumb.Content
	thumbRep.MediaType = thumb.MediaType
	thumbRep.StatusCode = 200
	thumbRep.FetchedAt = &now
	thumbRep.ImageWidth = thumb.Width
	thumbRep.ImageHeight = thumb.Height
	thumbRep.ThumbnailOfID = rep.ID
	mirror.Mirror(ctx, policy.Mirror, thumbRep, target)
	return r.store.UpdateRepresentation(ctx, thumbRep)
}

// suppress takes every pool of owner out of circulation.
func (r *Reconciler) suppress(ctx context.Context, owner Owner, reason string) error {
	for _, p := range owner.Pools {
		pool, err := r.store.LicensePool(ctx, p.ID)
		if err != nil {
			return err
		}
		pool.Suppressed = true
		pool.LicenseException = reason
		if err := r.store.UpdateLicensePool(ctx, pool); err != nil {
			return errors.WrapResource("update", "license pool", pool.ID, err)
		}
		logging.FromContext(ctx).Warn().
			Str("license_pool", pool.ID).
			Str("reason", reason).
			Msg("suppressed license pool")
	}
	return nil
}

// filename names a mirrored file after the last path segment of url,
// adding an extension for mediaType when it has none.
func filename(url, mediaType string) string {
	name := mirror.Filename(url)
	if path.Ext(name) == "" {
		name += constants.FileExtension(mediaType)
	}
	return name
}
