package domain

// Bot is the top-level controlled-flow configuration: a named graph of Nodes.
// Nodes keep insertion order; by convention the first node is the entry node.
type Bot struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// EntryNode returns the node a fresh session starts at.
func (b *Bot) EntryNode() (*Node, bool) {
	if len(b.Nodes) == 0 {
		return nil, false
	}
	return &b.Nodes[0], true
}

// FindNode returns the node with the given id.
func (b *Bot) FindNode(id string) (*Node, bool) {
	i := b.NodeIndex(id)
	if i < 0 {
		return nil, false
	}
	return &b.Nodes[i], true
}

// NodeIndex returns the position of the node with the given id, or -1.
func (b *Bot) NodeIndex(id string) int {
	for i := range b.Nodes {
		if b.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// HasNode reports whether a node with the given id exists.
func (b *Bot) HasNode(id string) bool {
	return b.NodeIndex(id) >= 0
}

// Clone returns a deep copy of the bot.
func (b Bot) Clone() Bot {
	out := b
	if b.Nodes != nil {
		out.Nodes = make([]Node, len(b.Nodes))
		for i, n := range b.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	return out
}

// NewWelcomeNode returns the default node used when a bot has no nodes at all.
func NewWelcomeNode() Node {
	return Node{
		ID:            WelcomeNodeID,
		Title:         WelcomeNodeTitle,
		Message:       WelcomeNodeMessage,
		Output:        Output{Type: OutputOptions},
		OptionsSource: SourceStatic,
		Options:       []Option{},
	}
}
