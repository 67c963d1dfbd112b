package schema

// Input is a compiled input constraint bound to a context key.
type Input struct {
	Key  string
	Type Type
}

// CompileInput builds the constraint for an input node.
func CompileInput(key, typeName, pattern string) (*Input, error) {
	t, err := ParseType(typeName)
	if err != nil {
		return nil, err
	}
	if pattern != "" {
		t, err = Pattern(t, pattern)
		if err != nil {
			return nil, err
		}
	}
	return &Input{Key: key, Type: t}, nil
}

// Parse validates a submission and returns its typed value.
// Failures are reported as *ValidationError.
func (in *Input) Parse(raw string) (any, error) {
	v, err := in.Type.Parse(raw)
	if err != nil {
		return nil, &ValidationError{Key: in.Key, Reason: err.Error(), Value: raw}
	}
	return v, nil
}
