package chains

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var defaultChains []byte

// Chain is one registered chain.
type Chain struct {
	ID   uint64 `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type registryFile struct {
	Chains []Chain `yaml:"chains"`
}

// Registry is the immutable set of known chains, ordered by id.
type Registry struct {
	chains []Chain
	byID   map[uint64]Chain
}

// Load reads the registry from path, or the embedded list when path is empty.
func Load(path string) (*Registry, error) {
	raw := defaultChains
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read chains file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes a YAML registry. Ids must be non-zero and unique.
func Parse(raw []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode chains: %w", err)
	}

	r := &Registry{byID: make(map[uint64]Chain, len(f.Chains))}
	for _, c := range f.Chains {
		if c.ID == 0 {
			return nil, fmt.Errorf("chain %q has no id", c.Name)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("chain id %d listed twice", c.ID)
		}
		if c.Name == "" {
			c.Name = fallbackName(c.ID)
		}
		r.byID[c.ID] = c
		r.chains = append(r.chains, c)
	}
	sort.Slice(r.chains, func(i, j int) bool { return r.chains[i].ID < r.chains[j].ID })
	return r, nil
}

// All returns a copy of the registered chains.
func (r *Registry) All() []Chain {
	out := make([]Chain, len(r.chains))
	copy(out, r.chains)
	return out
}

func (r *Registry) Lookup(id uint64) (Chain, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// UnregisteredLabel stands in for every chain id the registry does not list.
const UnregisteredLabel = "unregistered"

// Label returns the metric label of id: its decimal form when registered,
// UnregisteredLabel otherwise. The set of labels is bounded by the registry.
func (r *Registry) Label(id uint64) string {
	if _, ok := r.Lookup(id); !ok {
		return UnregisteredLabel
	}
	return strconv.FormatUint(id, 10)
}

// Name returns the registered name, or "Chain <id>" for unknown chains.
func (r *Registry) Name(id uint64) string {
	if c, ok := r.byID[id]; ok {
		return c.Name
	}
	return fallbackName(id)
}

func fallbackName(id uint64) string {
	return fmt.Sprintf("Chain %d", id)
}
