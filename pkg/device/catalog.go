package device

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// ErrNotFound indicates a device id or name missing from the catalog.
var ErrNotFound = errors.New("device not found")

// Catalog is an immutable set of device descriptors.
type Catalog struct {
	byID   map[uint8]*Descriptor
	byName map[string]*Descriptor
}

type catalogFile struct {
	Devices []*Descriptor `yaml:"devices"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = LoadCatalog(bytes.NewReader(builtinCatalog))
	})
	if defaultErr != nil {
		// The embedded catalog is covered by tests; failing here is a build defect.
		panic(fmt.Sprintf("built-in device catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// LoadCatalog reads a catalog in catalog.yaml format.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing device catalog: %w", err)
	}
	return NewCatalog(f.Devices...)
}

// NewCatalog builds a catalog from descriptors. Ids and names must be unique.
func NewCatalog(devices ...*Descriptor) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[uint8]*Descriptor, len(devices)),
		byName: make(map[string]*Descriptor, len(devices)),
	}
	for _, d := range devices {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %d", d.ID)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate device name %q", d.Name)
		}
		c.byID[d.ID] = d
		c.byName[d.Name] = d
	}
	return c, nil
}

// ByID returns the descriptor for a device id.
func (c *Catalog) ByID(id uint8) (*Descriptor, error) {
	d, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return d, nil
}

// ByName returns the descriptor with the exact name.
func (c *Catalog) ByName(name string) (*Descriptor, error) {
	d, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// All returns every descriptor sorted by id.
func (c *Catalog) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(c.byID))
	for _, d := range c.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.byID)
}
