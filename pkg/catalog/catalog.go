// Package catalog turns the flat (schema, table, column) listing of a
// backend's information schema into a browsable tree.
package catalog

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// Level of an item in the tree.
type Level int

const (
	LevelSchema Level = iota
	LevelTable
	LevelColumn
)

// Item is a schema, table or column.
type Item struct {
	Level    Level
	Name     string
	DataType string
	Children []*Item
}

// Tree is an ordered forest of items.
type Tree struct {
	Roots []*Item
}

// Build groups entries by schema then table, keeping first-seen order.
// Entries without a schema put their tables at the top level. Entries
// without a column describe an empty table.
func Build(entries []core.CatalogEntry) *Tree {
	t := &Tree{}
	schemas := map[string]*Item{}
	tables := map[[2]string]*Item{}

	for _, e := range entries {
		var parent *Item
		if e.Schema != "" {
			parent = schemas[e.Schema]
			if parent == nil {
				parent = &Item{Level: LevelSchema, Name: e.Schema}
				schemas[e.Schema] = parent
				t.Roots = append(t.Roots, parent)
			}
		}

		key := [2]string{e.Schema, e.Table}
		table := tables[key]
		if table == nil {
			table = &Item{Level: LevelTable, Name: e.Table}
			tables[key] = table
			if parent != nil {
				parent.Children = append(parent.Children, table)
			} else {
				t.Roots = append(t.Roots, table)
			}
		}

		if e.Column != "" {
			table.Children = append(table.Children, &Item{Level: LevelColumn, Name: e.Column, DataType: e.DataType})
		}
	}
	return t
}

// Matcher decides whether an item name matches a query.
type Matcher func(name string) bool

// NewMatcher returns a case-insensitive substring matcher, or a
// case-insensitive regular expression matcher when useRegex is set.
func NewMatcher(query string, useRegex bool) (Matcher, error) {
	if !useRegex {
		q := strings.ToLower(query)
		return func(name string) bool { return strings.Contains(strings.ToLower(name), q) }, nil
	}
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid schema query").WithDetail("query", query)
	}
	return re.MatchString, nil
}

// Filter returns the items that match plus their ancestors. Descendants of
// a matching item are only kept when they match themselves.
func (t *Tree) Filter(match Matcher) *Tree {
	out := &Tree{}
	for _, r := range t.Roots {
		if kept := filterItem(r, match); kept != nil {
			out.Roots = append(out.Roots, kept)
		}
	}
	return out
}

func filterItem(it *Item, match Matcher) *Item {
	var children []*Item
	for _, c := range it.Children {
		if kept := filterItem(c, match); kept != nil {
			children = append(children, kept)
		}
	}
	if len(children) == 0 && !match(it.Name) {
		return nil
	}
	return &Item{Level: it.Level, Name: it.Name, DataType: it.DataType, Children: children}
}

// Print writes the tree indented four spaces per level.
func (t *Tree) Print(w io.Writer) error {
	for _, r := range t.Roots {
		if err := printItem(w, r, 0); err != nil {
			return err
		}
	}
	return nil
}

func printItem(w io.Writer, it *Item, depth int) error {
	line := strings.Repeat("    ", depth) + it.Name
	if it.DataType != "" {
		line += " " + it.DataType
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range it.Children {
		if err := printItem(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
