// Package registry provides the node variant table: which document fields
// each node type owns and which connections it offers.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ckpd/flowcanvas/pkg/models"
)

// Definition describes one node variant. Adding a node type is a single
// Definition registered here; the importer, exporter and palette all walk
// this table instead of switching on type.
type Definition struct {
	Type        string
	Name        string
	Description string

	// Fields are the type-specific document keys this variant owns, in
	// document order. Common keys (description, agent, is_checkpoint,
	// retry_policy) are owned by every variant and not repeated here.
	Fields []string

	// ConnectionKeys are the scalar connection fields the editor offers for
	// this variant. Import maps any scalar key regardless; this only drives
	// what the inspector suggests.
	ConnectionKeys []string

	SupportsBranches bool
	SupportsRules    bool

	// Defaults seeds a fresh node's data when the variant is added from the
	// palette.
	Defaults func(data *models.NodeData)
}

// Registry holds the known node variants.
type Registry struct {
	logger      *slog.Logger
	definitions map[string]Definition
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger,
		definitions: make(map[string]Definition),
	}
}

// Register installs a variant definition, replacing any previous definition
// for the same type.
func (r *Registry) Register(def Definition) {
	if def.Type == "" {
		r.logger.Warn("Ignoring variant definition without a type")

		return
	}

	r.definitions[def.Type] = def
}

// Get returns the definition for a node type.
func (r *Registry) Get(nodeType string) (Definition, error) {
	def, ok := r.definitions[nodeType]
	if !ok {
		return Definition{}, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return def, nil
}

// IsKnown reports whether a node type is registered.
func (r *Registry) IsKnown(nodeType string) bool {
	_, ok := r.definitions[nodeType]

	return ok
}

// List returns all definitions sorted by type, for the palette.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Type < defs[j].Type
	})

	return defs
}

// OwnedKeys returns every document key a variant recognizes: the common keys
// plus the variant's own fields.
func (r *Registry) OwnedKeys(nodeType string) []string {
	keys := models.CommonFieldKeys()

	def, ok := r.definitions[nodeType]
	if !ok {
		return keys
	}

	return append(keys, def.Fields...)
}

// NewNodeData builds a default-initialized data set for a registered type.
func (r *Registry) NewNodeData(nodeType string) (*models.NodeData, error) {
	def, err := r.Get(nodeType)
	if err != nil {
		return nil, err
	}

	data := models.NewNodeData()
	if def.Defaults != nil {
		def.Defaults(data)
	}

	return data, nil
}
