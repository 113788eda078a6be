package repair

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// maxSuggestDistance bounds how far a typo may be from a key and still get
// a suggestion.
const maxSuggestDistance = 6

// SuggestActionKey returns the known key closest to s. Prefixes such as
// "split" or "retype" match directly.
func SuggestActionKey(s string) (ActionKey, bool) {
	input := strings.ToLower(strings.TrimSpace(s))
	if input == "" {
		return "", false
	}

	for _, k := range ActionKeys {
		if strings.HasPrefix(strings.ToLower(string(k)), input) {
			return k, true
		}
	}

	var best ActionKey
	bestDistance := maxSuggestDistance + 1
	for _, k := range ActionKeys {
		d := edlib.LevenshteinDistance(input, strings.ToLower(string(k)))
		if d < bestDistance {
			best, bestDistance = k, d
		}
	}
	return best, best != ""
}
