package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/agentstation/utc"
)

// LinkSpec describes a hyperlink to ensure on an identifier.
type LinkSpec struct {
	Rel       string
	Href      string
	MediaType string
	Content   string
}

// GenericURI builds a stable URL for inline content that has none.
func GenericURI(source string, identifier *Identifier, rel, content string) string {
	sum := sha1.Sum([]byte(source + "\x00" + identifier.String() + "\x00" + rel + "\x00" + content))
	return "urn:metalayer:link:" + hex.EncodeToString(sum[:])
}

// AddLink makes sure identifier links to spec's resource on behalf of
// source. Inline content is stored as an already-fetched representation.
func AddLink(ctx context.Context, store LinkStore, identifier *Identifier, source string, spec LinkSpec) (*Hyperlink, *Resource, error) {
	href := spec.Href
	if href == "" {
		href = GenericURI(source, identifier, spec.Rel, spec.Content)
	}

	resource, _, err := store.FindOrCreateResource(ctx, href, source)
	if err != nil {
		return nil, nil, err
	}
	link, _, err := store.FindOrCreateHyperlink(ctx, identifier.ID, spec.Rel, source, resource.ID)
	if err != nil {
		return nil, nil, err
	}

	if spec.Content != "" {
		rep, _, err := store.FindOrCreateRepresentation(ctx, href)
		if err != nil {
			return nil, nil, err
		}
		now := utc.Now()
		rep.Content = []byte(spec.Content)
		rep.MediaType = spec.MediaType
		rep.StatusCode = 200
		rep.FetchedAt = &now
		if err := store.UpdateRepresentation(ctx, rep); err != nil {
			return nil, nil, err
		}
		if resource.RepresentationID != rep.ID {
			resource.RepresentationID = rep.ID
			if err := store.UpdateResource(ctx, resource); err != nil {
				return nil, nil, err
			}
		}
	}
	return link, resource, nil
}

// BestCover picks the highest-quality resource linked under rel from
// any of identifierIDs. It returns nil when there is none.
func BestCover(ctx context.Context, store LinkStore, identifierIDs []string, rel string) (*Resource, error) {
	var best *Resource
	seen := make(map[string]bool)
	for _, id := range identifierIDs {
		links, err := store.Hyperlinks(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if link.Rel != rel || seen[link.ResourceID] {
				continue
			}
			seen[link.ResourceID] = true
			resource, err := store.Resource(ctx, link.ResourceID)
			if err != nil {
				return nil, err
			}
			if best == nil || resource.Quality > best.Quality {
				best = resource
			}
		}
	}
	return best, nil
}
