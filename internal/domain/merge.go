package domain

import "slices"

// Merge combines a local collection with quotes fetched from the remote source.
// The result lists every remote quote in order, followed by the local quotes whose
// text does not appear remotely, in their original order. On a text collision the
// remote quote replaces the local one entirely, category included.
func Merge(local, remote []Quote) []Quote {
	remoteTexts := make(map[string]struct{}, len(remote))
	for _, q := range remote {
		remoteTexts[q.Text] = struct{}{}
	}

	merged := make([]Quote, 0, len(remote)+len(local))
	merged = append(merged, remote...)

	for _, q := range local {
		if _, taken := remoteTexts[q.Text]; taken {
			continue
		}

		merged = append(merged, q)
	}

	return merged
}

// Equal reports whether two collections hold the same quotes in the same order.
func Equal(a, b []Quote) bool {
	return slices.Equal(a, b)
}

// Categories returns the distinct categories of quotes in first-seen order.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	categories := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}

	return categories
}

// FilterByCategory returns the quotes filed under selection, or all of them when
// selection is FilterAll. The result is never nil.
func FilterByCategory(quotes []Quote, selection string) []Quote {
	if selection == FilterAll {
		return append(make([]Quote, 0, len(quotes)), quotes...)
	}

	matched := make([]Quote, 0)

	for _, q := range quotes {
		if q.Category == selection {
			matched = append(matched, q)
		}
	}

	return matched
}
