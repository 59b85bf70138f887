package history

import (
	"strings"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// Suggestion is what choosing a known product name fills into a record
type Suggestion struct {
	ProductName string `json:"productName"`
	Weight      string `json:"weight,omitempty"`
	MRP         string `json:"mrp,omitempty"`
}

// ProductNames returns the distinct non-empty product names in the history,
// newest first, keeping those that contain filter (case-insensitive)
func (p *Projection) ProductNames(filter string) []string {
	entries := p.All()
	term := strings.ToLower(strings.TrimSpace(filter))

	seen := make(map[string]bool, len(entries))
	names := []string{}
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Details.ProductName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if term != "" && !strings.Contains(strings.ToLower(name), term) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Suggest upper-cases name and carries over Weight and MRP from the most
// recent product with that name. Sentinel and empty values are not carried.
func (p *Projection) Suggest(name string) Suggestion {
	s := Suggestion{ProductName: strings.ToUpper(strings.TrimSpace(name))}

	entries := p.All()
	for i := len(entries) - 1; i >= 0; i-- {
		d := entries[i].Details
		if strings.ToUpper(d.ProductName) != s.ProductName {
			continue
		}
		if known(d.Weight) {
			s.Weight = d.Weight
		}
		if known(d.MRP) {
			s.MRP = d.MRP
		}
		break
	}
	return s
}

func known(v string) bool {
	return v != "" && v != domain.NotFound
}
