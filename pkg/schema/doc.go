// Package schema validates free-form values captured by input nodes.
//
// A Type parses the raw text an end user submitted into a typed value
// ("text" stays a string, "number" becomes a float64). An Input combines a
// Type with an optional regular expression and the context key the value
// is stored under.
//
// Basic usage:
//
//	in, err := schema.CompileInput("age", "number", `^\d{1,3}$`)
//	if err != nil {
//	    return err // bad type name or bad pattern
//	}
//	value, err := in.Parse("42") // value == 42.0
package schema
