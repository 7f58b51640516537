// Package directory holds the static equipment directory: named groups of
// equipment compiled into the binary. It is read-only.
package directory

import (
	_ "embed"
	"fmt"

	"github.com/tphummel/logsheet/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed directory.yaml
var defaultDoc []byte

var defaultDirectory = mustNew(defaultDoc)

type document struct {
	Groups []struct {
		Name      string             `yaml:"name"`
		Equipment []models.Equipment `yaml:"equipment"`
	} `yaml:"groups"`
}

// Directory maps group names to ordered equipment lists.
type Directory struct {
	groups  []string
	byGroup map[string][]models.Equipment
	byID    map[string]models.Equipment
	groupOf map[string]string
}

// Default returns the directory compiled into the binary.
func Default() *Directory {
	return defaultDirectory
}

// New parses a YAML directory document. Group names and equipment ids must
// be unique across the whole document.
func New(doc []byte) (*Directory, error) {
	var parsed document
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}

	d := &Directory{
		byGroup: make(map[string][]models.Equipment, len(parsed.Groups)),
		byID:    make(map[string]models.Equipment),
		groupOf: make(map[string]string),
	}
	for _, g := range parsed.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group with empty name")
		}
		if _, dup := d.byGroup[g.Name]; dup {
			return nil, fmt.Errorf("duplicate group %q", g.Name)
		}
		for _, e := range g.Equipment {
			if e.ID == "" {
				return nil, fmt.Errorf("group %q: equipment with empty id", g.Name)
			}
			if other, dup := d.groupOf[e.ID]; dup {
				return nil, fmt.Errorf("equipment id %q in both %q and %q", e.ID, other, g.Name)
			}
			d.byID[e.ID] = e
			d.groupOf[e.ID] = g.Name
		}
		d.groups = append(d.groups, g.Name)
		d.byGroup[g.Name] = g.Equipment
	}
	return d, nil
}

func mustNew(doc []byte) *Directory {
	d, err := New(doc)
	if err != nil {
		panic(err)
	}
	return d
}

// Groups returns the group names in declaration order.
func (d *Directory) Groups() []string {
	return append([]string(nil), d.groups...)
}

// Equipment returns the ordered equipment of group, or nil if the group is
// unknown.
func (d *Directory) Equipment(group string) []models.Equipment {
	list, ok := d.byGroup[group]
	if !ok {
		return nil
	}
	return append([]models.Equipment(nil), list...)
}

// Find looks id up across all groups.
func (d *Directory) Find(id string) (models.Equipment, bool) {
	e, ok := d.byID[id]
	return e, ok
}

// GroupOf returns the name of the group that lists id.
func (d *Directory) GroupOf(id string) (string, bool) {
	g, ok := d.groupOf[id]
	return g, ok
}
