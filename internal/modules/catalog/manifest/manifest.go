// Package manifest reads catalog schemas and listing inputs from YAML and
// replays them through the product type mutators.
package manifest

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
)

//go:embed sample.yaml
var sampleFS embed.FS

type Document struct {
	Lookups      []LookupTypeDoc  `yaml:"lookups"`
	Links        []LinkDoc        `yaml:"links"`
	ProductTypes []ProductTypeDoc `yaml:"product_types"`
	Listings     []ListingDoc     `yaml:"listings"`
}

type LookupTypeDoc struct {
	Key     string      `yaml:"key"`
	Name    string      `yaml:"name"`
	Open    bool        `yaml:"open"`
	Options []OptionDoc `yaml:"options"`
}

type OptionDoc struct {
	Code     string `yaml:"code"`
	Label    string `yaml:"label"`
	Position *int   `yaml:"position"`
	Parent   string `yaml:"parent"`
}

// LinkDoc joins "type.code" references.
type LinkDoc struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

type ProductTypeDoc struct {
	Key           string              `yaml:"key"`
	Name          string              `yaml:"name"`
	Parent        string              `yaml:"parent"`
	Publish       bool                `yaml:"publish"`
	Attributes    []AttributeDoc      `yaml:"attributes"`
	LookupAllowed map[string][]string `yaml:"lookup_allowed"`
}

type AttributeDoc struct {
	Key       string      `yaml:"key"`
	Name      string      `yaml:"name"`
	Kind      string      `yaml:"kind"`
	Required  bool        `yaml:"required"`
	Variant   bool        `yaml:"variant"`
	Position  *int        `yaml:"position"`
	DependsOn string      `yaml:"depends_on"`
	Unit      string      `yaml:"unit"`
	Min       string      `yaml:"min"`
	Max       string      `yaml:"max"`
	Lookup    string      `yaml:"lookup"`
	Members   []string    `yaml:"members"`
	Options   []OptionDoc `yaml:"options"`
}

type ListingDoc struct {
	Name        string              `yaml:"name" json:"name"`
	ProductType string              `yaml:"product_type" json:"product_type"`
	Inputs      map[string]InputDoc `yaml:"inputs" json:"inputs"`
	Variants    []VariantDoc        `yaml:"variants" json:"variants"`
}

// InputDoc holds one attribute input as text. Value is a scalar; Axis lists
// codes, numbers or "lo..hi" ranges; Tuples lists group member values.
type InputDoc struct {
	Value  string     `yaml:"value" json:"value,omitempty"`
	Axis   []string   `yaml:"axis" json:"axis,omitempty"`
	Tuples [][]string `yaml:"tuples" json:"tuples,omitempty"`
}

// VariantDoc is one SKU: attribute key to its value as text.
type VariantDoc struct {
	SKU    string            `yaml:"sku" json:"sku"`
	Values map[string]string `yaml:"values" json:"values"`
}

// Load decodes a manifest, rejecting unknown fields.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	return &doc, nil
}

func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// SampleYAML returns the raw bundled demo manifest.
func SampleYAML() []byte {
	data, err := sampleFS.ReadFile("sample.yaml")
	if err != nil {
		panic(err) // embedded at build time
	}
	return data
}

// Sample returns the bundled demo manifest.
func Sample() (*Document, error) {
	return Load(bytes.NewReader(SampleYAML()))
}

func (d *Document) ProductType(key string) *ProductTypeDoc {
	for i := range d.ProductTypes {
		if d.ProductTypes[i].Key == key {
			return &d.ProductTypes[i]
		}
	}
	return nil
}

func splitRef(ref string) (string, string, error) {
	typ, code, ok := strings.Cut(strings.TrimSpace(ref), ".")
	if !ok || typ == "" || code == "" {
		return "", "", catalog.NewRuleError(catalog.CodeInvalidInput, "manifest", "link reference must be type.code", "ref", ref)
	}
	return typ, code, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
