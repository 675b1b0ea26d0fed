package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/persist"
	"github.com/phobologic/persist/ndarray"
)

// manifest is the YAML document render/save/dataset-set consume: a map
// of top-level names to typed value specs.
type manifest struct {
	Values map[string]valueSpec `yaml:"values"`
}

// valueSpec is one tagged value. Exactly one field may be set.
type valueSpec struct {
	Int    *int64               `yaml:"int"`
	Float  *float64             `yaml:"float"`
	String *string              `yaml:"string"`
	Bool   *bool                `yaml:"bool"`
	List   []valueSpec          `yaml:"list"`
	Map    map[string]valueSpec `yaml:"map"`
	Range  *rangeSpec           `yaml:"range"`
	Array  *arraySpec           `yaml:"array"`
}

type rangeSpec struct {
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
	Step  int `yaml:"step"`
}

type arraySpec struct {
	Shape []int     `yaml:"shape"`
	Data  []float64 `yaml:"data"`
}

func loadManifest(path string) (*manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Values) == 0 {
		return nil, fmt.Errorf("manifest %s defines no values", path)
	}
	return &m, nil
}

// buildValues materializes every spec into the Go value it describes.
func (m *manifest) buildValues() (map[string]any, error) {
	out := make(map[string]any, len(m.Values))
	for name, spec := range m.Values {
		v, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func (s valueSpec) build() (any, error) {
	switch {
	case s.Int != nil:
		return *s.Int, nil
	case s.Float != nil:
		return *s.Float, nil
	case s.String != nil:
		return *s.String, nil
	case s.Bool != nil:
		return *s.Bool, nil
	case s.List != nil:
		items := make([]any, len(s.List))
		for i, e := range s.List {
			v, err := e.build()
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			items[i] = v
		}
		return items, nil
	case s.Map != nil:
		entries := make(map[string]any, len(s.Map))
		for k, e := range s.Map {
			v, err := e.build()
			if err != nil {
				return nil, fmt.Errorf("map[%s]: %w", k, err)
			}
			entries[k] = v
		}
		return entries, nil
	case s.Range != nil:
		step := s.Range.Step
		if step == 0 {
			step = 1
		}
		return persist.Range{Start: s.Range.Start, Stop: s.Range.Stop, Step: step}, nil
	case s.Array != nil:
		n := 1
		for _, d := range s.Array.Shape {
			n *= d
		}
		if len(s.Array.Shape) == 0 {
			n = len(s.Array.Data)
		}
		if n != len(s.Array.Data) {
			return nil, fmt.Errorf("array shape %v wants %d elements, data has %d", s.Array.Shape, n, len(s.Array.Data))
		}
		shape := s.Array.Shape
		if len(shape) == 0 {
			shape = []int{len(s.Array.Data)}
		}
		return ndarray.NewFloat64(shape, s.Array.Data), nil
	}
	return nil, fmt.Errorf("empty value spec")
}
