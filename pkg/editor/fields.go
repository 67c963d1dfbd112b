package editor

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Node field names accepted by UpdateNode.
const (
	FieldTitle              = "title"
	FieldMessage            = "message"
	FieldInputNextNodeID    = "inputNextNodeId"
	FieldOptionsSource      = "optionsSource"
	FieldOutput             = "output"
	FieldOutputType         = "output.type"
	FieldOutputCustomText   = "output.customText"
	FieldOutputControls     = "output.controls"
	FieldAPIResponseMapping = "apiResponseMapping"

	// ExecutorConfigPrefix addresses one field of the current executor config,
	// e.g. "executor.config.endpoint" or "executor.config.retryLimit".
	ExecutorConfigPrefix = "executor.config."
)

// Option field names accepted by UpdateOption.
const (
	FieldLabel      = "label"
	FieldNextNodeID = "nextNodeId"
	FieldActionType = "actionType"
)

var executorConfigFields = map[domain.ExecutorType]map[string]bool{
	domain.ExecutorAPI:   {"endpoint": true, "method": true, "params": true},
	domain.ExecutorInput: {"key": true, "type": true, "validation": true, "retryLimit": true},
}

// UpdateNode sets one field of a node. No cross-field validation is performed:
// switching a node to an input executor does not clear its options.
func UpdateNode(bot domain.Bot, nodeID, field string, value any) (domain.Bot, error) {
	idx := bot.NodeIndex(nodeID)
	if idx < 0 {
		return bot, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}

	out := bot.Clone()
	if err := setNodeField(&out.Nodes[idx], field, value); err != nil {
		return bot, fmt.Errorf("node '%s' field '%s': %w", nodeID, field, err)
	}
	return out, nil
}

// UpdateOption sets one field of an option.
func UpdateOption(bot domain.Bot, nodeID, optionID, field string, value any) (domain.Bot, error) {
	idx, optIdx, err := locateOption(&bot, nodeID, optionID)
	if err != nil {
		return bot, err
	}

	out := bot.Clone()
	opt := &out.Nodes[idx].Options[optIdx]
	switch field {
	case FieldLabel:
		err = setString(&opt.Label, value)
	case FieldNextNodeID:
		err = setString(&opt.NextNodeID, value)
	case FieldActionType:
		var s string
		if err = setString(&s, value); err == nil {
			switch t := domain.ActionType(s); t {
			case domain.ActionNormal, domain.ActionBack, domain.ActionEnd:
				opt.ActionType = t
			default:
				err = fmt.Errorf("%w: action type %q", domain.ErrInvalidFieldValue, s)
			}
		}
	default:
		err = domain.ErrUnknownField
	}
	if err != nil {
		return bot, fmt.Errorf("option '%s' field '%s': %w", optionID, field, err)
	}
	return out, nil
}

func setNodeField(n *domain.Node, field string, value any) error {
	switch field {
	case FieldTitle:
		return setString(&n.Title, value)
	case FieldMessage:
		return setString(&n.Message, value)
	case FieldInputNextNodeID:
		return setString(&n.InputNextNodeID, value)

	case FieldOptionsSource:
		var s string
		if err := setString(&s, value); err != nil {
			return err
		}
		switch src := domain.OptionsSource(s); src {
		case domain.SourceStatic, domain.SourceDynamic:
			n.OptionsSource = src
			return nil
		}
		return fmt.Errorf("%w: options source %q", domain.ErrInvalidFieldValue, s)

	case FieldOutput:
		var o domain.Output
		switch v := value.(type) {
		case domain.Output:
			o = v
		case *domain.Output:
			if v == nil {
				return fmt.Errorf("%w: nil output", domain.ErrInvalidFieldValue)
			}
			o = *v
		default:
			if err := decodeStrict(value, &o); err != nil {
				return err
			}
		}
		if !o.Type.Valid() {
			return fmt.Errorf("%w: output type %q", domain.ErrInvalidFieldValue, o.Type)
		}
		if o.Controls != nil {
			c := *o.Controls
			o.Controls = &c
		}
		n.Output = o
		return nil

	case FieldOutputType:
		var s string
		if err := setString(&s, value); err != nil {
			return err
		}
		if !domain.OutputType(s).Valid() {
			return fmt.Errorf("%w: output type %q", domain.ErrInvalidFieldValue, s)
		}
		n.Output.Type = domain.OutputType(s)
		return nil

	case FieldOutputCustomText:
		return setString(&n.Output.CustomText, value)

	case FieldOutputControls:
		switch v := value.(type) {
		case nil:
			n.Output.Controls = nil
		case domain.Controls:
			n.Output.Controls = &v
		case *domain.Controls:
			if v == nil {
				n.Output.Controls = nil
				return nil
			}
			c := *v
			n.Output.Controls = &c
		default:
			var c domain.Controls
			if err := decodeStrict(value, &c); err != nil {
				return err
			}
			n.Output.Controls = &c
		}
		return nil

	case FieldAPIResponseMapping:
		switch v := value.(type) {
		case nil:
			n.APIResponseMapping = nil
		case domain.APIResponseMapping:
			n.APIResponseMapping = &v
		case *domain.APIResponseMapping:
			if v == nil {
				n.APIResponseMapping = nil
				return nil
			}
			m := *v
			n.APIResponseMapping = &m
		default:
			var m domain.APIResponseMapping
			if err := decodeStrict(value, &m); err != nil {
				return err
			}
			n.APIResponseMapping = &m
		}
		return nil
	}

	if key, ok := strings.CutPrefix(field, ExecutorConfigPrefix); ok {
		return setExecutorConfig(n, key, value)
	}
	return domain.ErrUnknownField
}

func setExecutorConfig(n *domain.Node, key string, value any) error {
	if n.Executor == nil {
		return fmt.Errorf("%w: node has no executor", domain.ErrUnknownField)
	}
	if !executorConfigFields[n.Executor.Type][key] {
		return fmt.Errorf("%w: %s executor has no field %q", domain.ErrUnknownField, n.Executor.Type, key)
	}

	patch := map[string]any{key: value}
	switch n.Executor.Type {
	case domain.ExecutorAPI:
		if n.Executor.API == nil {
			n.Executor.API = &domain.APIConfig{Method: domain.MethodGET}
		}
		next := *n.Executor.API
		if key == "params" {
			next.Params = nil
		}
		if err := decodeStrict(patch, &next); err != nil {
			return err
		}
		next.Method = strings.ToUpper(next.Method)
		if next.Method != domain.MethodGET {
			return fmt.Errorf("%w: %w", domain.ErrInvalidFieldValue, domain.ErrMethodNotAllowed)
		}
		n.Executor.API = &next

	case domain.ExecutorInput:
		if n.Executor.Input == nil {
			n.Executor.Input = &domain.InputConfig{}
		}
		next := *n.Executor.Input
		if err := decodeStrict(patch, &next); err != nil {
			return err
		}
		if next.Type != domain.InputText && next.Type != domain.InputNumber {
			return fmt.Errorf("%w: input type %q", domain.ErrInvalidFieldValue, next.Type)
		}
		if next.RetryLimit < 0 {
			return fmt.Errorf("%w: negative retry limit", domain.ErrInvalidFieldValue)
		}
		n.Executor.Input = &next
	}
	return nil
}

func setString(dst *string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: expected string, got %T", domain.ErrInvalidFieldValue, value)
	}
	*dst = s
	return nil
}

// decodeStrict decodes structured editor values, rejecting unknown keys and type mismatches.
func decodeStrict(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidFieldValue, err)
	}
	return nil
}
