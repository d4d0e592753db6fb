package catalog

import "strings"

// Filter keeps services of the given category whose name contains query,
// case-insensitively. An empty query matches every name.
func Filter(services []Service, categoryID int, query string) []Service {
	needle := strings.ToLower(strings.TrimSpace(query))

	out := make([]Service, 0, len(services))
	for _, s := range services {
		if s.CategoryID != categoryID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func FindService(services []Service, id int) (*Service, bool) {
	for i := range services {
		if services[i].ID == id {
			return &services[i], true
		}
	}
	return nil, false
}
