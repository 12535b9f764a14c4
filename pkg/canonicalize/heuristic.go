package canonicalize

import (
	"context"
	"strings"

	"github.com/agentstation/metalayer/pkg/catalog"
)

var suffixes = map[string]bool{
	"jr": true, "jr.": true, "sr": true, "sr.": true,
	"ii": true, "iii": true, "iv": true,
	"phd": true, "ph.d.": true, "md": true, "m.d.": true,
}

var particles = map[string]bool{
	"van": true, "von": true, "de": true, "del": true, "della": true,
	"der": true, "di": true, "du": true, "la": true, "le": true, "da": true,
}

// Heuristic inverts a "Given Family" display name without looking
// anything up. Names that already contain a comma are returned as is.
type Heuristic struct{}

func (Heuristic) CanonicalizeAuthorName(_ context.Context, _ *catalog.Identifier, displayName string) (string, error) {
	return SortName(displayName), nil
}

// SortName converts "Herman Melville" to "Melville, Herman", keeping
// lowercase particles ("Ludwig van Beethoven" -> "van Beethoven, Ludwig")
// with the family name and suffixes ("Martin Luther King Jr.") at the end.
func SortName(displayName string) string {
	name := strings.Join(strings.Fields(displayName), " ")
	if name == "" || strings.Contains(name, ",") {
		return name
	}
	parts := strings.Split(name, " ")

	var suffix string
	if last := parts[len(parts)-1]; len(parts) > 2 && suffixes[strings.ToLower(last)] {
		suffix = last
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 1 {
		return parts[0]
	}

	familyStart := len(parts) - 1
	for familyStart > 1 && particles[parts[familyStart-1]] {
		familyStart--
	}
	family := strings.Join(parts[familyStart:], " ")
	given := strings.Join(parts[:familyStart], " ")

	sortName := family + ", " + given
	if suffix != "" {
		sortName += ", " + suffix
	}
	return sortName
}
