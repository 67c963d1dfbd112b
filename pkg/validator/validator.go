// Package validator checks the referential integrity of a bot graph.
//
// Errors are structural violations the runtime cannot execute safely.
// Warnings (dangling targets, unwired options, orphan and unreachable nodes)
// are surfaced to the author but never block a save.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/schema"
)

// Code identifies the kind of an issue.
type Code string

const (
	CodeDuplicateNode     Code = "duplicate_node"
	CodeDuplicateOption   Code = "duplicate_option"
	CodeTooManyOptions    Code = "too_many_options"
	CodeInputWithOptions  Code = "input_with_options"
	CodeTerminalOptions   Code = "terminal_with_options"
	CodeMethodNotAllowed  Code = "method_not_allowed"
	CodeInvalidPattern    Code = "invalid_pattern"
	CodeInvalidOutput     Code = "invalid_output"
	CodeDanglingTarget    Code = "dangling_target"
	CodeUnwiredOption     Code = "unwired_option"
	CodeMissingInputNext  Code = "missing_input_next"
	CodeDanglingInputNext Code = "dangling_input_next"
	CodeOrphanNode        Code = "orphan_node"
	CodeUnreachableNode   Code = "unreachable_node"
)

// Issue is one finding of the integrity check.
type Issue struct {
	Code     Code   `json:"code"`
	NodeID   string `json:"nodeId,omitempty"`
	OptionID string `json:"optionId,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) Error() string {
	return i.Message
}

// Report is the result of Check.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the graph carries no structural errors.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the structural errors as a *schema.AggregateError, or nil.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, issue := range r.Errors {
		errs[i] = issue
	}
	return &schema.AggregateError{Errors: errs}
}

// Summary renders the warnings as a short bullet list.
func (r Report) Summary() string {
	if len(r.Warnings) == 0 {
		return ""
	}
	lines := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		lines[i] = "- " + w.Message
	}
	return strings.Join(lines, "\n")
}

// NodeIDs returns the distinct ids of the nodes carrying an issue, errors first.
func (r Report) NodeIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, issue := range append(append([]Issue{}, r.Errors...), r.Warnings...) {
		if issue.NodeID != "" && !seen[issue.NodeID] {
			seen[issue.NodeID] = true
			ids = append(ids, issue.NodeID)
		}
	}
	return ids
}

type checker struct {
	bot    *domain.Bot
	report Report
}

func (c *checker) errorf(code Code, nodeID, optionID, format string, args ...any) {
	c.report.Errors = append(c.report.Errors, Issue{Code: code, NodeID: nodeID, OptionID: optionID, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warnf(code Code, nodeID, optionID, format string, args ...any) {
	c.report.Warnings = append(c.report.Warnings, Issue{Code: code, NodeID: nodeID, OptionID: optionID, Message: fmt.Sprintf(format, args...)})
}

// Check inspects the bot and returns every issue found.
func Check(bot *domain.Bot) Report {
	c := &checker{bot: bot, report: Report{Errors: []Issue{}, Warnings: []Issue{}}}

	seen := make(map[string]bool, len(bot.Nodes))
	for i := range bot.Nodes {
		n := &bot.Nodes[i]
		if seen[n.ID] {
			c.errorf(CodeDuplicateNode, n.ID, "", "node id '%s' is used more than once", n.ID)
		}
		seen[n.ID] = true
		c.checkNode(n)
	}

	c.checkConnectivity()
	return c.report
}

func (c *checker) checkNode(n *domain.Node) {
	if !n.Output.Type.Valid() {
		c.errorf(CodeInvalidOutput, n.ID, "", "node '%s' has unknown output type '%s'", n.ID, n.Output.Type)
	}
	if len(n.Options) > domain.MaxOptionsPerNode {
		c.errorf(CodeTooManyOptions, n.ID, "", "node '%s' has %d options (max %d)", n.ID, len(n.Options), domain.MaxOptionsPerNode)
	}
	if n.IsInput() && len(n.Options) > 0 {
		c.errorf(CodeInputWithOptions, n.ID, "", "input node '%s' must branch through inputNextNodeId, not options", n.ID)
	}
	if n.IsTerminal() && len(n.Options) > 0 {
		c.errorf(CodeTerminalOptions, n.ID, "", "end node '%s' cannot have options", n.ID)
	}

	if exec := n.Executor; exec != nil {
		if exec.Type == domain.ExecutorAPI && exec.API != nil && !strings.EqualFold(exec.API.Method, domain.MethodGET) {
			c.errorf(CodeMethodNotAllowed, n.ID, "", "node '%s' uses method '%s': %v", n.ID, exec.API.Method, domain.ErrMethodNotAllowed)
		}
		if exec.Type == domain.ExecutorInput && exec.Input != nil && exec.Input.Validation != "" {
			if _, err := schema.CompilePattern(exec.Input.Validation); err != nil {
				c.errorf(CodeInvalidPattern, n.ID, "", "node '%s': %v", n.ID, err)
			}
		}
	}

	if n.IsInput() {
		switch {
		case n.InputNextNodeID == "":
			c.warnf(CodeMissingInputNext, n.ID, "", "input node '%s' has no inputNextNodeId", n.ID)
		case !c.bot.HasNode(n.InputNextNodeID):
			c.warnf(CodeDanglingInputNext, n.ID, "", "input node '%s' targets missing node '%s'", n.ID, n.InputNextNodeID)
		}
	}

	if m := n.APIResponseMapping; m != nil && n.IsDynamic() && m.NextNodeID != "" && !c.bot.HasNode(m.NextNodeID) {
		c.warnf(CodeDanglingTarget, n.ID, "", "generated options of node '%s' target missing node '%s'", n.ID, m.NextNodeID)
	}

	optSeen := make(map[string]bool, len(n.Options))
	for _, o := range n.Options {
		if optSeen[o.ID] {
			c.errorf(CodeDuplicateOption, n.ID, o.ID, "node '%s' has option id '%s' more than once", n.ID, o.ID)
		}
		optSeen[o.ID] = true

		if !o.IsNavigation() {
			continue
		}
		switch {
		case !o.IsWired():
			c.warnf(CodeUnwiredOption, n.ID, o.ID, "option '%s' of node '%s' is not wired", o.Label, n.ID)
		case !c.bot.HasNode(o.NextNodeID):
			c.warnf(CodeDanglingTarget, n.ID, o.ID, "option '%s' of node '%s' targets missing node '%s'", o.Label, n.ID, o.NextNodeID)
		}
	}
}

// checkConnectivity flags nodes with no incoming edge and nodes the entry node cannot reach.
func (c *checker) checkConnectivity() {
	entry, ok := c.bot.EntryNode()
	if !ok {
		return
	}

	incoming := make(map[string]int, len(c.bot.Nodes))
	for i := range c.bot.Nodes {
		for _, target := range successors(&c.bot.Nodes[i]) {
			if target != c.bot.Nodes[i].ID {
				incoming[target]++
			}
		}
	}

	visited := map[string]bool{entry.ID: true}
	queue := []string{entry.ID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		n, ok := c.bot.FindNode(currentID)
		if !ok {
			continue
		}
		for _, target := range successors(n) {
			if !visited[target] {
				visited[target] = true
				queue = append(queue, target)
			}
		}
	}

	for i := 1; i < len(c.bot.Nodes); i++ {
		n := &c.bot.Nodes[i]
		if incoming[n.ID] == 0 {
			c.warnf(CodeOrphanNode, n.ID, "", "node '%s' has no incoming options", n.ID)
			continue
		}
		if !visited[n.ID] {
			c.warnf(CodeUnreachableNode, n.ID, "", "node '%s' is unreachable from '%s'", n.ID, entry.ID)
		}
	}
}

// successors lists the node ids a node can transition to.
func successors(n *domain.Node) []string {
	var out []string
	if n.IsInput() {
		if n.InputNextNodeID != "" {
			out = append(out, n.InputNextNodeID)
		}
		return out
	}
	for _, o := range n.Options {
		if o.IsNavigation() && o.IsWired() {
			out = append(out, o.NextNodeID)
		}
	}
	if m := n.APIResponseMapping; m != nil && n.IsDynamic() && m.NextNodeID != "" {
		out = append(out, m.NextNodeID)
	}
	return out
}
