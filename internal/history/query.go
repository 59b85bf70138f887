package history

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// SortKeyTimestamp sorts by insertion order. It is the default key.
const SortKeyTimestamp = "timestamp"

// Direction is a sort direction
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Query describes how a list is filtered and ordered for display. The zero
// value lists newest first.
type Query struct {
	Search    string
	SortKey   string
	Direction Direction
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// Apply filters and sorts a copy of entries, which must be ascending by
// timestamp
func (q Query) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	term := strings.ToLower(strings.TrimSpace(q.Search))
	for _, e := range entries {
		if term == "" ||
			strings.Contains(strings.ToLower(e.Details.ProductName), term) ||
			strings.Contains(strings.ToLower(e.Details.BatchNo), term) {
			out = append(out, e)
		}
	}

	key := q.SortKey
	if key == "" {
		key = SortKeyTimestamp
	}

	if key == SortKeyTimestamp {
		dir := q.Direction
		if dir == "" {
			dir = Descending
		}
		sort.SliceStable(out, func(i, j int) bool {
			if dir == Ascending {
				return out[i].Timestamp < out[j].Timestamp
			}
			return out[i].Timestamp > out[j].Timestamp
		})
		return out
	}

	field, err := domain.ParseField(key)
	if err != nil {
		return out
	}
	dir := q.Direction
	if dir == "" {
		dir = Ascending
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Details.Get(field), out[j].Details.Get(field)
		aMissing, bMissing := missing(a), missing(b)

		// absent values go last in either direction
		if aMissing || bMissing {
			return !aMissing && bMissing
		}

		c := compareField(field, a, b)
		if dir == Descending {
			c = -c
		}
		return c < 0
	})
	return out
}

// ValidSortKey reports whether key can be used in a Query
func ValidSortKey(key string) bool {
	if key == "" || key == SortKeyTimestamp {
		return true
	}
	_, err := domain.ParseField(key)
	return err == nil
}

func missing(v string) bool {
	return v == "" || v == domain.NotFound
}

func compareField(field domain.Field, a, b string) int {
	switch field {
	case domain.FieldManufacturingDate, domain.FieldExpiryDate:
		da, errA := time.Parse("02.01.06", a)
		db, errB := time.Parse("02.01.06", b)
		if errA != nil || errB != nil {
			return 0
		}
		return da.Compare(db)
	case domain.FieldMRP, domain.FieldQuantity, domain.FieldWeight:
		na, errA := strconv.ParseFloat(nonNumeric.ReplaceAllString(a, ""), 64)
		nb, errB := strconv.ParseFloat(nonNumeric.ReplaceAllString(b, ""), 64)
		if errA != nil || errB != nil {
			return 0
		}
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	default:
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
}
