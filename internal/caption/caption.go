// Package caption derives post captions from image storage keys.
package caption

import (
	"path"
	"strings"
	"unicode"
)

// Humanize inserts a space before every capital letter that is not the first
// character of the string. "NationalHatDay" becomes "National Hat Day";
// strings without capitals pass through unchanged, and the first character
// never gets a preceding space regardless of case.
func Humanize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ForKey builds the post caption for an image storage key. The occasion is the
// token after the final underscore in the filename stem.
func ForKey(key string) string {
	stem := strings.TrimSuffix(path.Base(key), ".jpg")
	parts := strings.Split(stem, "_")
	occasion := Humanize(parts[len(parts)-1])
	return "National " + occasion + " Day!"
}
