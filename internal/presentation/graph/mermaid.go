package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// GraphOverlay contains dynamic data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	// FlaggedNodes are nodes with integrity warnings or errors.
	FlaggedNodes []string
}

// GenerateMermaid produces a Mermaid flowchart of the bot's graph.
// It applies semantic styling:
// - Entry node: ((Circle))
// - API executor: [[Subroutine]]
// - Input executor: [/Parallelogram/]
// - End output: ([Stadium])
// - Default: [Rectangle]
// Options pointing at missing nodes are drawn to a {{missing}} placeholder.
func GenerateMermaid(bot *domain.Bot, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	missing := make(map[string]bool)
	var missingOrder []string
	edge := func(from, arrow, to string) {
		if !bot.HasNode(to) && !missing[to] {
			missing[to] = true
			missingOrder = append(missingOrder, to)
			fmt.Fprintf(&sb, "    %s{{\"missing: %s\"}}\n", sanitizeMermaidID(to), escape(to))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, sanitizeMermaidID(to))
	}

	for i := range bot.Nodes {
		node := &bot.Nodes[i]
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case node.IsTerminal():
			opener, closer = "([", "])"
		case node.IsInput():
			opener, closer = "[/", "/]"
		case node.Executor != nil && node.Executor.Type == domain.ExecutorAPI:
			opener, closer = "[[", "]]"
		}

		label := node.Title
		if label == "" {
			label = node.ID
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)

		if node.IsInput() && node.InputNextNodeID != "" {
			key := domain.DefaultInputKey
			if node.Executor.Input != nil && node.Executor.Input.Key != "" {
				key = node.Executor.Input.Key
			}
			edge(safeID, fmt.Sprintf("-- \"%s\" -->", escape("{{"+key+"}}")), node.InputNextNodeID)
		}

		if node.IsDynamic() && node.APIResponseMapping != nil && node.APIResponseMapping.NextNodeID != "" {
			edge(safeID, "-. \"dynamic\" .->", node.APIResponseMapping.NextNodeID)
		}

		for _, opt := range node.Options {
			if !opt.IsNavigation() || !opt.IsWired() {
				continue
			}
			label := opt.Label
			if label == "" {
				label = domain.FallbackOptionLabel
			}
			edge(safeID, fmt.Sprintf("-- \"%s\" -->", escape(label)), opt.NextNodeID)
		}
	}

	if len(missingOrder) > 0 {
		sb.WriteString("    classDef missing fill:#ffebee,stroke:#c62828,stroke-dasharray: 5 5,color:#000;\n")
		for _, id := range missingOrder {
			fmt.Fprintf(&sb, "    class %s missing;\n", sanitizeMermaidID(id))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef flagged fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")

		writeClass := func(ids []string, class string) {
			seen := make(map[string]bool)
			for _, id := range ids {
				safeID := sanitizeMermaidID(id)
				if safeID == "" || seen[safeID] || !bot.HasNode(id) {
					continue
				}
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s %s;\n", safeID, class)
			}
		}
		writeClass(overlay.FlaggedNodes, "flagged")
		writeClass(overlay.VisitedNodes, "visited")
		if overlay.CurrentNode != "" {
			writeClass([]string{overlay.CurrentNode}, "current")
		}
	}

	return sb.String()
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
