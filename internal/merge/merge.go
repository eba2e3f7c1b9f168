// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge folds per-chunk extraction fragments into one menu.
package merge

import (
	"maps"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Options controls label handling during a merge.
type Options struct {
	// Taxonomy is consulted only when Strict is set.
	Taxonomy types.Taxonomy

	// Strict drops items whose category or subcategory is not in Taxonomy.
	Strict bool
}

// Result is a merged menu with the counts gathered along the way.
type Result struct {
	Menu              types.Menu
	ItemsCount        int
	DuplicatesDropped int

	// OutOfTaxonomy counts items dropped by strict taxonomy checks.
	OutOfTaxonomy int

	// FailedChunks lists chunk indexes whose fragments were not usable.
	FailedChunks []int
}

// Merge walks fragments in ascending chunk index and inserts each item keyed
// by (category, subcategory, name). Labels are normalized to taxonomy keys
// and names are compared case-folded with whitespace collapsed. The first
// occurrence of a key wins; later ones are counted in DuplicatesDropped.
// Categories, subcategories, and items keep first-seen order. The input is
// not modified and the same input always yields the same Result.
func Merge(fragments []types.ExtractionFragment, opts Options) Result {
	ordered := make([]types.ExtractionFragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ChunkIndex < ordered[j].ChunkIndex
	})

	m := newMerger(opts)
	for _, f := range ordered {
		if !f.OK {
			m.res.FailedChunks = append(m.res.FailedChunks, f.ChunkIndex)
			continue
		}
		m.add(f.Menu)
	}
	return m.res
}

type merger struct {
	opts  Options
	fold  cases.Caser
	res   Result
	cats  map[string]int
	subs  map[string]int
	items map[string]bool
}

func newMerger(opts Options) *merger {
	return &merger{
		opts:  opts,
		fold:  cases.Fold(),
		cats:  make(map[string]int),
		subs:  make(map[string]int),
		items: make(map[string]bool),
	}
}

func (m *merger) add(menu types.Menu) {
	for _, cat := range menu {
		catKey := types.NormalizeLabel(cat.Name)
		if catKey == "" {
			continue
		}
		for _, sub := range cat.Subcategories {
			subKey := types.NormalizeLabel(sub.Name)
			if subKey == "" {
				continue
			}
			if m.opts.Strict && !m.opts.Taxonomy.Allows(catKey, subKey) {
				m.res.OutOfTaxonomy += len(sub.Items)
				continue
			}
			for _, item := range sub.Items {
				m.insert(catKey, subKey, item)
			}
		}
	}
}

func (m *merger) insert(catKey, subKey string, item types.LineItem) {
	name := strings.Join(strings.Fields(item.Name), " ")
	if name == "" {
		return
	}
	itemKey := catKey + "\x00" + subKey + "\x00" + m.fold.String(name)
	if m.items[itemKey] {
		m.res.DuplicatesDropped++
		return
	}
	m.items[itemKey] = true

	ci, ok := m.cats[catKey]
	if !ok {
		ci = len(m.res.Menu)
		m.cats[catKey] = ci
		m.res.Menu = append(m.res.Menu, types.Category{Name: catKey})
	}
	cat := &m.res.Menu[ci]

	subPath := catKey + "\x00" + subKey
	si, ok := m.subs[subPath]
	if !ok {
		si = len(cat.Subcategories)
		m.subs[subPath] = si
		cat.Subcategories = append(cat.Subcategories, types.Subcategory{Name: subKey})
	}

	item.Name = name
	item.Prices = maps.Clone(item.Prices)
	if item.Prices == nil {
		item.Prices = types.Prices{}
	}
	cat.Subcategories[si].Items = append(cat.Subcategories[si].Items, item)
	m.res.ItemsCount++
}
