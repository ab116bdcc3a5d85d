package vocabulary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region is one entry of the fixed body-region vocabulary used by pain
// areas.
type Region struct {
	Display string `yaml:"display" json:"display"`
	Group   string `yaml:"group" json:"group"`
}

type Catalog struct {
	Regions map[string]Region `yaml:"regions" json:"regions"`
}

// Load reads a region catalog from a YAML file, falling back to the
// built-in catalog when no path is configured.
func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Regions) == 0 {
		return Catalog{}, fmt.Errorf("region catalog empty")
	}
	return cat, nil
}

func (c Catalog) Lookup(area string) (Region, bool) {
	if c.Regions == nil {
		return Region{}, false
	}
	region, ok := c.Regions[strings.ToLower(area)]
	if ok {
		return region, true
	}
	for k, v := range c.Regions {
		if strings.EqualFold(k, area) {
			return v, true
		}
	}
	return Region{}, false
}

// Known reports whether the area belongs to the vocabulary.
func (c Catalog) Known(area string) bool {
	_, ok := c.Lookup(area)
	return ok
}

func DefaultCatalog() Catalog {
	return Catalog{Regions: map[string]Region{
		"head":       {Display: "Head", Group: "upper"},
		"neck":       {Display: "Neck", Group: "upper"},
		"chest":      {Display: "Chest", Group: "torso"},
		"upper-back": {Display: "Upper Back", Group: "torso"},
		"lower-back": {Display: "Lower Back", Group: "torso"},
		"abdomen":    {Display: "Abdomen", Group: "torso"},
		"pelvis":     {Display: "Pelvis", Group: "torso"},
		"left-arm":   {Display: "Left Arm", Group: "limbs"},
		"right-arm":  {Display: "Right Arm", Group: "limbs"},
		"left-leg":   {Display: "Left Leg", Group: "limbs"},
		"right-leg":  {Display: "Right Leg", Group: "limbs"},
		"joints":     {Display: "Joints", Group: "limbs"},
		"whole-body": {Display: "Whole Body", Group: "general"},
	}}
}
