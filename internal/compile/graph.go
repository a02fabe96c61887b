package compile

import (
	"sort"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/naming"
)

// Graph is the resource map shared by every compiler in a pass. It is
// append-only except for Set.
type Graph struct {
	resources map[string]wetwire.ResourceDef
}

// NewGraph creates a graph seeded with base. The seed map is copied.
func NewGraph(base map[string]wetwire.ResourceDef) *Graph {
	resources := make(map[string]wetwire.ResourceDef, len(base))
	for id, def := range base {
		resources[id] = def
	}
	return &Graph{resources: resources}
}

// Add registers a new resource. Registering an existing logical ID is an
// invariant violation.
func (g *Graph) Add(id string, def wetwire.ResourceDef) error {
	if _, exists := g.resources[id]; exists {
		return &InvariantError{LogicalID: id, Err: ErrDuplicateLogicalID}
	}
	g.resources[id] = def
	return nil
}

// Get returns the resource registered under id.
func (g *Graph) Get(id string) (wetwire.ResourceDef, bool) {
	def, ok := g.resources[id]
	return def, ok
}

// Has reports whether id is registered.
func (g *Graph) Has(id string) bool {
	_, ok := g.resources[id]
	return ok
}

// Set replaces an existing resource.
func (g *Graph) Set(id string, def wetwire.ResourceDef) error {
	if _, exists := g.resources[id]; !exists {
		return invariantf(id, "resource does not exist")
	}
	g.resources[id] = def
	return nil
}

// Role returns the properties of the shared execution role.
func (g *Graph) Role() (map[string]any, error) {
	role, ok := g.resources[naming.RoleLogicalID]
	if !ok {
		return nil, invariantf(naming.RoleLogicalID, "execution role is missing from the base template")
	}
	if role.Properties == nil {
		role.Properties = make(map[string]any)
		g.resources[naming.RoleLogicalID] = role
	}
	return role.Properties, nil
}

// IDs returns every logical ID in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.resources))
	for id := range g.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of resources.
func (g *Graph) Len() int {
	return len(g.resources)
}

// Resources returns the underlying map.
func (g *Graph) Resources() map[string]wetwire.ResourceDef {
	return g.resources
}
