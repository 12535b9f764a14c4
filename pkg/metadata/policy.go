package metadata

import (
	"github.com/agentstation/metalayer/pkg/analytics"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/mirror"
)

// ContentModifier rewrites fetched content before it is mirrored.
type ContentModifier func(rep *catalog.Representation) error

// ReplacementPolicy says which categories of existing data an incoming
// record may overwrite, and carries the collaborators used along the way.
type ReplacementPolicy struct {
	Identifiers   bool
	Subjects      bool
	Contributions bool
	Links         bool
	Formats       bool
	Rights        bool

	// LinkContent forces linked content to be refetched.
	LinkContent bool
	// EvenIfNotApparentlyUpdated skips the coverage staleness check.
	EvenIfNotApparentlyUpdated bool

	// Mirror, when set, mirrors open-access books and covers.
	Mirror          mirror.Uploader
	ContentModifier ContentModifier
	Analytics       analytics.Provider
	HTTPGet         mirror.Fetcher
	Scaler          mirror.Scaler

	Presentation catalog.PresentationCalculationPolicy
}

// PolicyOption adjusts a ReplacementPolicy.
type PolicyOption func(*ReplacementPolicy)

// NewReplacementPolicy starts from an append-only policy with the
// default presentation policy.
func NewReplacementPolicy(opts ...PolicyOption) *ReplacementPolicy {
	p := &ReplacementPolicy{Presentation: catalog.DefaultPresentationPolicy()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromLicenseSource is for sources that are authoritative about
// everything, rights and formats included.
func FromLicenseSource(opts ...PolicyOption) *ReplacementPolicy {
	base := []PolicyOption{
		WithIdentifiers(true), WithSubjects(true), WithContributions(true),
		WithLinks(true), WithFormats(true), WithRights(true),
	}
	return NewReplacementPolicy(append(base, opts...)...)
}

// FromMetadataSource is for sources that know about a book but not
// about how it is licensed.
func FromMetadataSource(opts ...PolicyOption) *ReplacementPolicy {
	base := []PolicyOption{
		WithIdentifiers(true), WithSubjects(true), WithContributions(true),
		WithLinks(true), WithFormats(false), WithRights(false),
	}
	return NewReplacementPolicy(append(base, opts...)...)
}

// AppendOnly never replaces anything.
func AppendOnly(opts ...PolicyOption) *ReplacementPolicy {
	return NewReplacementPolicy(opts...)
}

// Policy names accepted by PolicyByName.
const (
	PolicyLicenseSource  = "license-source"
	PolicyMetadataSource = "metadata-source"
	PolicyAppendOnly     = "append-only"
)

// PolicyByName resolves a configured policy name.
func PolicyByName(name string, opts ...PolicyOption) (*ReplacementPolicy, error) {
	switch name {
	case PolicyLicenseSource:
		return FromLicenseSource(opts...), nil
	case PolicyMetadataSource:
		return FromMetadataSource(opts...), nil
	case PolicyAppendOnly, "":
		return AppendOnly(opts...), nil
	default:
		return nil, errors.NewConfigError("policy", "unknown replacement policy "+name, nil)
	}
}

func WithIdentifiers(v bool) PolicyOption   { return func(p *ReplacementPolicy) { p.Identifiers = v } }
func WithSubjects(v bool) PolicyOption      { return func(p *ReplacementPolicy) { p.Subjects = v } }
func WithContributions(v bool) PolicyOption { return func(p *ReplacementPolicy) { p.Contributions = v } }
func WithLinks(v bool) PolicyOption         { return func(p *ReplacementPolicy) { p.Links = v } }
func WithFormats(v bool) PolicyOption       { return func(p *ReplacementPolicy) { p.Formats = v } }
func WithRights(v bool) PolicyOption        { return func(p *ReplacementPolicy) { p.Rights = v } }
func WithLinkContent(v bool) PolicyOption   { return func(p *ReplacementPolicy) { p.LinkContent = v } }

// WithForce bypasses the staleness check.
func WithForce(v bool) PolicyOption {
	return func(p *ReplacementPolicy) { p.EvenIfNotApparentlyUpdated = v }
}

// WithMirror enables mirroring through uploader, fetching with fetcher
// and thumbnailing with scaler.
func WithMirror(uploader mirror.Uploader, fetcher mirror.Fetcher, scaler mirror.Scaler) PolicyOption {
	return func(p *ReplacementPolicy) {
		p.Mirror = uploader
		p.HTTPGet = fetcher
		p.Scaler = scaler
	}
}

// WithContentModifier sets the hook run on content before mirroring.
func WithContentModifier(fn ContentModifier) PolicyOption {
	return func(p *ReplacementPolicy) { p.ContentModifier = fn }
}

// WithAnalytics sets the analytics sink for circulation events.
func WithAnalytics(a analytics.Provider) PolicyOption {
	return func(p *ReplacementPolicy) { p.Analytics = a }
}

// WithPresentation replaces the presentation calculation policy.
func WithPresentation(pp catalog.PresentationCalculationPolicy) PolicyOption {
	return func(p *ReplacementPolicy) { p.Presentation = pp }
}
