package catalog

import (
	"sort"
	"strings"
)

// Category is one taxonomy entry with its distinct subcategory names.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// BuildTaxonomy derives the goods taxonomy: the synthetic "All" entry followed
// by every goods category in lexical order, each with its sorted distinct
// subcategories. Services are skipped.
func BuildTaxonomy(items []Item) []Category {
	groups := make(map[string]map[string]struct{})
	for _, item := range items {
		if item.IsService() {
			continue
		}
		category := goodsCategory(item)
		subs, ok := groups[category]
		if !ok {
			subs = make(map[string]struct{})
			groups[category] = subs
		}
		if sub := strings.TrimSpace(item.Subcategory); sub != "" {
			subs[sub] = struct{}{}
		}
	}
	return flatten(groups)
}

// BuildServiceTaxonomy groups services by type. Service types have no
// subcategories.
func BuildServiceTaxonomy(items []Item) []Category {
	groups := make(map[string]map[string]struct{})
	for _, item := range items {
		if !item.IsService() {
			continue
		}
		serviceType := item.Subcategory
		if serviceType == "" {
			serviceType = GeneralServiceType
		}
		groups[serviceType] = nil
	}
	return flatten(groups)
}

func flatten(groups map[string]map[string]struct{}) []Category {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Category, 0, len(names)+1)
	out = append(out, Category{Name: AllCategory, Subcategories: []string{}})
	for _, name := range names {
		subs := make([]string, 0, len(groups[name]))
		for sub := range groups[name] {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		out = append(out, Category{Name: name, Subcategories: subs})
	}
	return out
}
