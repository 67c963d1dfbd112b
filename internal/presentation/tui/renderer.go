package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Without a usable renderer the markdown is returned as is.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// TurnMarkdown formats a turn for the terminal playground.
// Options are numbered so the player can answer with the number or the option id.
func TurnMarkdown(turn domain.Turn) string {
	var sb strings.Builder

	if turn.Notice != "" {
		fmt.Fprintf(&sb, "> ⚠️ %s\n\n", turn.Notice)
	}

	switch turn.Type {
	case domain.TurnText:
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	default:
		if turn.Node != nil {
			if turn.Node.Title != "" {
				fmt.Fprintf(&sb, "### %s\n\n", turn.Node.Title)
			}
			sb.WriteString(turn.Node.Message)
			sb.WriteString("\n")
		}
	}

	if turn.Type == domain.TurnInput && turn.InputConfig != nil {
		fmt.Fprintf(&sb, "\n_Type your answer (%s)._\n", orDefault(string(turn.InputConfig.Type), "text"))
	}

	if len(turn.Options) > 0 {
		sb.WriteString("\n")
		for i, opt := range turn.Options {
			if turn.Type == domain.TurnInput {
				fmt.Fprintf(&sb, "- `%s` %s\n", command(opt.OptionID), opt.Intent)
				continue
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, opt.Intent)
		}
	}

	if turn.SessionEnded {
		sb.WriteString("\n---\n_Conversation ended._\n")
	}
	return sb.String()
}

// command is the prompt command for an affordance option.
func command(optionID string) string {
	switch optionID {
	case domain.BackOptionID:
		return ":back"
	case domain.EndOptionID:
		return ":end"
	}
	return optionID
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
