package dsl

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/validator"
)

// Builder manages the graph construction.
type Builder struct {
	id    string
	name  string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new bot builder.
func New(id, name string) *Builder {
	return &Builder{
		id:    id,
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Node declares a node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Node(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:            id,
			Title:         id,
			Output:        domain.Output{Type: domain.OutputOptions},
			OptionsSource: domain.SourceStatic,
			Options:       []domain.Option{},
		},
	}
	b.order = append(b.order, id)
	b.nodes[id] = nb
	return nb
}

// Build assembles the bot and checks its integrity. Structural errors are
// returned; warnings are left for the caller to inspect with validator.Check.
func (b *Builder) Build() (*domain.Bot, error) {
	bot := &domain.Bot{ID: b.id, Name: b.name, Nodes: make([]domain.Node, 0, len(b.order))}
	for _, id := range b.order {
		bot.Nodes = append(bot.Nodes, b.nodes[id].Build())
	}
	if err := validator.Check(bot).Err(); err != nil {
		return nil, fmt.Errorf("build bot %q: %w", b.id, err)
	}
	return bot, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *domain.Bot {
	bot, err := b.Build()
	if err != nil {
		panic(err)
	}
	return bot
}
