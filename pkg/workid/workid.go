// Package workid computes permanent work IDs: deterministic fingerprints
// that group editions of the same underlying work.
//
// A permanent work ID is the hex MD5 digest of
// normalized-title "/" normalized-author "/" medium-tag.
package workid

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// stripMarks decomposes and drops combining marks, so "é" becomes "e".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalize folds case, strips diacritics and reduces s to letters and
// digits separated by single spaces.
func normalize(s string) string {
	s = folder.String(stripMarks(s))
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		default:
			// Punctuation joins its neighbours: "Moby-Dick" -> "mobydick".
		}
	}
	return b.String()
}

// NormalizeTitle normalizes a title for work-ID purposes.
func NormalizeTitle(title string) string {
	return normalize(title)
}

// NormalizeAuthor normalizes a sort-author name for work-ID purposes.
// Word order is kept; spacing is dropped so "Melville, Herman" and
// "Melville,Herman" agree.
func NormalizeAuthor(author string) string {
	return strings.ReplaceAll(normalize(author), " ", "")
}

// PermanentID hashes already-normalized inputs.
func PermanentID(normTitle, normAuthor, mediumTag string) string {
	sum := md5.Sum([]byte(normTitle + "/" + normAuthor + "/" + mediumTag))
	return hex.EncodeToString(sum[:])
}

// ForTitleAndAuthor normalizes title and author, then hashes them with mediumTag.
func ForTitleAndAuthor(title, author, mediumTag string) string {
	return PermanentID(NormalizeTitle(title), NormalizeAuthor(author), mediumTag)
}
