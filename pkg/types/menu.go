// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Menu is an ordered category → subcategory → items tree. On the wire it is
// a JSON object whose key order is the slice order, e.g.
//
//	{"vegetarian": {"starters": [{"name": "Idli", "prices": {"full": 40}}]}}
type Menu []Category

// Category is a top-level menu section such as "vegetarian".
type Category struct {
	Name          string        `json:"name" yaml:"name"`
	Subcategories []Subcategory `json:"subcategories" yaml:"subcategories"`
}

// Subcategory is a section within a category such as "starters".
type Subcategory struct {
	Name  string     `json:"name" yaml:"name"`
	Items []LineItem `json:"items" yaml:"items"`
}

// LineItem is one dish with its prices keyed by size label ("half", "full").
type LineItem struct {
	Name        string `json:"name" yaml:"name"`
	Prices      Prices `json:"prices" yaml:"prices"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Cuisine     string `json:"cuisine,omitempty" yaml:"cuisine,omitempty"`
	Spicy       bool   `json:"spicy,omitempty" yaml:"spicy,omitempty"`
	Bestseller  bool   `json:"bestseller,omitempty" yaml:"bestseller,omitempty"`
}

// Prices maps a size label to an amount.
type Prices map[string]float64

// ItemsCount returns the number of line items across the whole menu.
func (m Menu) ItemsCount() int {
	n := 0
	for _, c := range m {
		for _, s := range c.Subcategories {
			n += len(s.Items)
		}
	}
	return n
}

// MarshalJSON writes the menu as a nested JSON object in slice order.
func (m Menu) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for j, sub := range cat.Subcategories {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(sub.Name)
			if err != nil {
				return nil, err
			}
			items := sub.Items
			if items == nil {
				items = []LineItem{}
			}
			body, err := json.Marshal(items)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(body)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a nested JSON object keeping key order. It is lenient
// in the way model output needs: category values that are not objects,
// subcategory values that are not arrays, and items that fail to decode or
// have no name are skipped rather than rejected. The top level must still be
// an object.
func (m *Menu) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var out Menu
	err := eachMember(data, func(catName string, catRaw json.RawMessage) error {
		if !isObject(catRaw) {
			return nil
		}
		cat := Category{Name: catName}
		err := eachMember(catRaw, func(subName string, subRaw json.RawMessage) error {
			var rawItems []json.RawMessage
			if err := json.Unmarshal(subRaw, &rawItems); err != nil {
				return nil
			}
			sub := Subcategory{Name: subName}
			for _, ri := range rawItems {
				var it LineItem
				if err := json.Unmarshal(ri, &it); err != nil || it.Name == "" {
					continue
				}
				sub.Items = append(sub.Items, it)
			}
			cat.Subcategories = append(cat.Subcategories, sub)
			return nil
		})
		if err != nil {
			return err
		}
		out = append(out, cat)
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalYAML emits the menu as an ordered YAML mapping.
func (m Menu) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, cat := range m {
		catNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, sub := range cat.Subcategories {
			items := &yaml.Node{}
			if err := items.Encode(sub.Items); err != nil {
				return nil, err
			}
			catNode.Content = append(catNode.Content, yamlString(sub.Name), items)
		}
		root.Content = append(root.Content, yamlString(cat.Name), catNode)
	}
	return root, nil
}

func yamlString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// UnmarshalJSON accepts the canonical prices object and also the loose
// shapes models produce: a bare amount, string amounts with currency marks,
// and "NA" placeholders, which are dropped.
func (p *Prices) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if amount, ok := parseAmount(data); ok {
			*p = Prices{"full": amount}
			return nil
		}
		*p = Prices{}
		return nil
	}
	out := make(Prices, len(raw))
	for label, v := range raw {
		if amount, ok := parseAmount(v); ok {
			out[strings.ToLower(strings.TrimSpace(label))] = amount
		}
	}
	*p = out
	return nil
}

// MarshalJSON writes an empty object instead of null for missing prices.
func (p Prices) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]float64(p))
}

// UnmarshalJSON decodes an item and folds a lone "price" field into
// prices["full"] when no prices object is present.
func (it *LineItem) UnmarshalJSON(data []byte) error {
	type plain LineItem
	var aux struct {
		plain
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*it = LineItem(aux.plain)
	it.Name = strings.TrimSpace(it.Name)
	if len(it.Prices) == 0 && len(aux.Price) > 0 {
		if amount, ok := parseAmount(aux.Price); ok {
			it.Prices = Prices{"full": amount}
		}
	}
	return nil
}

var currencyMarks = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", "INR", "", "$", "", "€", "", "£", "", ",", "", "/-", "")

// parseAmount reads a JSON number or a numeric string. Placeholders such as
// "NA" report false.
func parseAmount(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, f >= 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(currencyMarks.Replace(s))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// eachMember walks the members of a JSON object in document order.
func eachMember(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
