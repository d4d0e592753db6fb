package catalog

import (
	"net/url"
	"sort"
	"strconv"
)

const defaultCategoryID = 1

type Crumb struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

type NavItem struct {
	Category Category
	URL      string
	Active   bool
}

// Navigator builds category navigation for one request. BaseQuery holds the
// query parameters (token, search) that every generated link must keep.
type Navigator struct {
	Categories []Category
	BaseQuery  url.Values
	BasePath   string
}

func NewNavigator(categories []Category, baseQuery url.Values) *Navigator {
	sorted := make([]Category, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderID < sorted[j].OrderID
	})

	return &Navigator{
		Categories: sorted,
		BaseQuery:  baseQuery,
		BasePath:   "/services",
	}
}

// ActiveCategoryID resolves the categoryId query value. An empty or
// malformed value falls back to the first category, or 1 with no categories.
func (n *Navigator) ActiveCategoryID(raw string) int {
	if raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			return id
		}
	}
	if len(n.Categories) > 0 {
		return n.Categories[0].ID
	}
	return defaultCategoryID
}

func (n *Navigator) Find(id int) (Category, bool) {
	for _, c := range n.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (n *Navigator) CategoryURL(id int) string {
	params := url.Values{}
	for k, v := range n.BaseQuery {
		params[k] = append([]string(nil), v...)
	}
	params.Set("categoryId", strconv.Itoa(id))
	return n.BasePath + "?" + params.Encode()
}

func (n *Navigator) Items(activeID int) []NavItem {
	items := make([]NavItem, 0, len(n.Categories))
	for _, c := range n.Categories {
		items = append(items, NavItem{
			Category: c,
			URL:      n.CategoryURL(c.ID),
			Active:   c.ID == activeID,
		})
	}
	return items
}

// Breadcrumb returns the services root, then the active category and the
// current service when they are known.
func (n *Navigator) Breadcrumb(activeID int, current *Service) []Crumb {
	rootID := defaultCategoryID
	if len(n.Categories) > 0 {
		rootID = n.Categories[0].ID
	}

	crumbs := []Crumb{{Label: "Services", URL: n.CategoryURL(rootID)}}
	if c, ok := n.Find(activeID); ok {
		crumbs = append(crumbs, Crumb{Label: c.Name, URL: n.CategoryURL(c.ID)})
	}
	if current != nil {
		crumbs = append(crumbs, Crumb{Label: current.Name})
	}
	return crumbs
}
