package storage

import (
	"fmt"
	"strings"
)

// ImagePrefix is the bucket namespace for generated images. Ledger job IDs are
// storage keys with this prefix stripped.
const ImagePrefix = "images/"

// BuildKey returns the deterministic storage key for a generated image:
// images/<month>_<day>_<index>_<occasion-no-spaces>.jpg. The index is the
// item's position within the run's batch and only disambiguates occasions
// sharing a date; it is not a cross-run identifier.
func BuildKey(month, day string, index int, occasion string) string {
	return fmt.Sprintf("%s%s_%s_%d_%s.jpg", ImagePrefix, month, day, index, strings.ReplaceAll(occasion, " ", ""))
}

// JobIDFromKey derives the ledger job ID from a storage key
func JobIDFromKey(key string) string {
	return strings.TrimPrefix(key, ImagePrefix)
}
