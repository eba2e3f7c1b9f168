// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// TaxonomyCategory is one top-level category and its allowed subcategories.
type TaxonomyCategory struct {
	Name          string   `json:"name" yaml:"name" mapstructure:"name"`
	Subcategories []string `json:"subcategories" yaml:"subcategories" mapstructure:"subcategories"`
}

// Taxonomy is the ordered set of categories the structuring prompt asks for.
// Its order is also the order categories appear in prompts.
type Taxonomy []TaxonomyCategory

// DefaultTaxonomy returns the vegetarian / non-vegetarian split used when no
// taxonomy is configured.
func DefaultTaxonomy() Taxonomy {
	subs := []string{"starters", "main_course", "seafood", "rice_and_biryani", "breads", "desserts", "beverages"}
	return Taxonomy{
		{Name: "vegetarian", Subcategories: append([]string(nil), subs...)},
		{Name: "non_vegetarian", Subcategories: append([]string(nil), subs...)},
	}
}

// Allows reports whether category/subcategory (already normalized) is part
// of the taxonomy.
func (t Taxonomy) Allows(category, subcategory string) bool {
	for _, c := range t {
		if NormalizeLabel(c.Name) != category {
			continue
		}
		for _, s := range c.Subcategories {
			if NormalizeLabel(s) == subcategory {
				return true
			}
		}
	}
	return false
}

// NormalizeLabel maps free-form labels such as "Non-Vegetarian" or
// "Main Course" onto taxonomy keys ("non_vegetarian", "main_course").
func NormalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}
