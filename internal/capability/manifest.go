package capability

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Manifest describes a simulated host environment.
type Manifest struct {
	// Environment names the host in report headers.
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty"`

	// Values maps dotted paths to present, non-invocable values.
	Values map[string]any `yaml:"values,omitempty" json:"values,omitempty"`

	// Functions maps dotted paths to invocable capabilities.
	Functions map[string]FuncSpec `yaml:"functions,omitempty" json:"functions,omitempty"`
}

// FuncSpec describes the behavior of a manifest function.
// A function with an Error always fails; otherwise it returns Note.
type FuncSpec struct {
	Note  string `yaml:"note,omitempty" json:"note,omitempty"`
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Func returns the invocable described by s.
func (s FuncSpec) Func() Func {
	return func() (string, error) {
		if s.Error != "" {
			return "", errors.New(s.Error)
		}
		return s.Note, nil
	}
}

// manifestSchema constrains CUE manifests before they are decoded.
const manifestSchema = `
#Manifest: {
	environment?: string
	values?: [string]: _
	functions?: [string]: {
		note?:  string
		error?: string
	}
}
`

// Load reads a manifest, choosing the decoder by extension
// (.yaml/.yml or .cue).
func Load(path string) (*Manifest, error) {
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return LoadManifest(path)
	case ".cue":
		return LoadCUEManifest(path)
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q (want .yaml, .yml or .cue)", ext)
	}
}

// LoadManifest reads a YAML manifest. Unknown fields are rejected.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a YAML manifest from data. An empty document
// describes a host with no capabilities.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// LoadCUEManifest reads a CUE manifest and validates it against #Manifest.
func LoadCUEManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseCUEManifest(data, path)
}

// ParseCUEManifest compiles CUE source and decodes it into a Manifest.
// filename is used for error positions only.
func ParseCUEManifest(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema).LookupPath(cue.ParsePath("#Manifest"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE manifest: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding CUE manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Namespace builds a resolver holding every value and function in m.
// Paths are applied in sorted order so conflicts are reported
// deterministically. Values are deep-copied: later changes to the
// namespace never reach m.
func (m *Manifest) Namespace() (*Namespace, error) {
	ns := New()

	for _, path := range sortedKeys(m.Values) {
		if err := ns.Set(path, cloneValue(m.Values[path])); err != nil {
			return nil, err
		}
	}
	for _, path := range sortedKeys(m.Functions) {
		if err := ns.Set(path, m.Functions[path].Func()); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

// validate checks path syntax and rejects a path declared as both a value
// and a function.
func (m *Manifest) validate() error {
	for _, path := range sortedKeys(m.Values) {
		if _, ok := splitPath(path); !ok {
			return fmt.Errorf("values: invalid capability path %q", path)
		}
	}
	for _, path := range sortedKeys(m.Functions) {
		if _, ok := splitPath(path); !ok {
			return fmt.Errorf("functions: invalid capability path %q", path)
		}
		if _, dup := m.Values[path]; dup {
			return fmt.Errorf("%q is declared as both a value and a function", path)
		}
	}
	return nil
}

// cloneValue copies the maps and slices a YAML or CUE decoder produces.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
