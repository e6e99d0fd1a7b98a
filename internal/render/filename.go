package render

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FileName derives a download file name from the manuscript title and the
// format's extension: "Čierna Voda" + ".md" → "cierna-voda.md". Diacritics
// are decomposed and stripped so the name survives Content-Disposition
// handling everywhere.
func FileName(title, extension string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "manuscript"
	}
	return slug + extension
}

// Slugify lowercases, strips combining marks, and collapses everything that
// is not a letter or digit into single hyphens.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(s))
	var b strings.Builder
	lastHyphen := true
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition, drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r > unicode.MaxASCII {
				continue
			}
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
