// Package langcode normalizes language names and codes to ISO 639-2
// three-letter codes.
package langcode

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/agentstation/metalayer/pkg/constants"
)

// names covers the English language names that show up in vendor feeds.
var names = map[string]string{
	"english":    "eng",
	"french":     "fre",
	"german":     "ger",
	"spanish":    "spa",
	"italian":    "ita",
	"portuguese": "por",
	"russian":    "rus",
	"chinese":    "chi",
	"japanese":   "jpn",
	"korean":     "kor",
	"arabic":     "ara",
	"hebrew":     "heb",
	"dutch":      "dut",
	"greek":      "gre",
	"latin":      "lat",
	"polish":     "pol",
	"swedish":    "swe",
	"danish":     "dan",
	"norwegian":  "nor",
	"finnish":    "fin",
	"hindi":      "hin",
	"turkish":    "tur",
	"vietnamese": "vie",
	"tagalog":    "tgl",
}

// bibliographic maps ISO 639-2/T terminology codes to the /B
// bibliographic codes library catalogs use.
var bibliographic = map[string]string{
	"fra": "fre",
	"deu": "ger",
	"zho": "chi",
	"nld": "dut",
	"ell": "gre",
	"ces": "cze",
	"fas": "per",
	"hye": "arm",
	"kat": "geo",
	"isl": "ice",
	"mkd": "mac",
	"msa": "may",
	"mya": "bur",
	"ron": "rum",
	"slk": "slo",
	"sqi": "alb",
	"eus": "baq",
	"bod": "tib",
	"cym": "wel",
	"mri": "mao",
}

// Normalize returns the three-letter code for s, or "" when s is not
// recognizable. The NoValue sentinel passes through untouched.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == constants.NoValue {
		return s
	}
	if code, ok := names[strings.ToLower(s)]; ok {
		return code
	}

	tag, err := language.Parse(s)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	code := base.ISO3()
	if b, ok := bibliographic[code]; ok {
		return b
	}
	return code
}
