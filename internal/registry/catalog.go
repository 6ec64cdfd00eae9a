package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/capprobe/internal/capability"
)

// CatalogFile is the on-disk form of a probe catalog.
//
//	environment: demo-host
//	probes:
//	  - name: cache.invalidate
//	    aliases: [cache_invalidate]
//	    dependencies: [cache.iscached]
//	    check: invoke
type CatalogFile struct {
	// Environment optionally names the host for the report header.
	Environment string `yaml:"environment,omitempty"`

	// Probes are registered in file order.
	Probes []ProbeEntry `yaml:"probes"`
}

// ProbeEntry declares one probe.
type ProbeEntry struct {
	Name         string   `yaml:"name"`
	Aliases      []string `yaml:"aliases,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`

	// Check selects the generated callback: invoke, present or none.
	// Empty means none.
	Check string `yaml:"check,omitempty"`

	// ExpectNote makes an invoke check pass only when the capability
	// returns exactly this note.
	ExpectNote string `yaml:"expect_note,omitempty"`
}

// Check kinds.
const (
	CheckInvoke  = "invoke"
	CheckPresent = "present"
	CheckNone    = "none"
)

// LoadCatalog reads a catalog file and builds a registry whose callbacks
// resolve against r.
func LoadCatalog(path string, r capability.Resolver) (*CatalogFile, *Registry, error) {
	file, err := ReadCatalogFile(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := file.Build(r)
	if err != nil {
		return nil, nil, err
	}
	return file, reg, nil
}

// ReadCatalogFile reads and validates a catalog file without binding
// callbacks.
func ReadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML with strict field checking.
// An empty document is an empty catalog.
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var file CatalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	if err := validateCatalog(&file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &file, nil
}

// Build registers one descriptor per probe entry, in file order.
func (c *CatalogFile) Build(r capability.Resolver) (*Registry, error) {
	reg := New()
	for i, p := range c.Probes {
		d := Descriptor{
			Name:         p.Name,
			Aliases:      p.Aliases,
			Dependencies: p.Dependencies,
			Callback:     callbackFor(p, r),
		}
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("probes[%d]: %w", i, err)
		}
	}
	return reg, nil
}

func callbackFor(p ProbeEntry, r capability.Resolver) Callback {
	switch p.Check {
	case CheckInvoke:
		name, expect := p.Name, p.ExpectNote
		return func() (string, error) {
			note, err := capability.Invoke(r, name)
			if err != nil {
				return "", err
			}
			if expect != "" && note != expect {
				return "", fmt.Errorf("unexpected note %q, want %q", note, expect)
			}
			return note, nil
		}
	case CheckPresent:
		// The scheduler has already resolved the name by the time this runs.
		return func() (string, error) { return "", nil }
	default:
		return nil
	}
}

func validateCatalog(c *CatalogFile) error {
	for i, p := range c.Probes {
		if p.Name == "" {
			return fmt.Errorf("probes[%d]: name is required", i)
		}
		switch p.Check {
		case "", CheckNone, CheckPresent, CheckInvoke:
		default:
			return fmt.Errorf("probes[%d]: unknown check %q", i, p.Check)
		}
		if p.ExpectNote != "" && p.Check != CheckInvoke {
			return fmt.Errorf("probes[%d]: expect_note requires check %q", i, CheckInvoke)
		}
	}
	return nil
}
