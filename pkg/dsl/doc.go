/*
Package dsl builds bot graphs in Go.

It is a fluent alternative to authoring JSON or YAML documents, handy for
tests and for bots generated by code. Nodes keep the order they are first
declared in, so the first node added is the entry node.

	b := dsl.New("greeter", "Greeter")

	b.Node("hello").
		Message("Hello!").
		Option("o-name", "Tell me your name", "ask")

	b.Node("ask").
		Message("What is your name?").
		Input("name", "greet")

	b.Node("greet").
		Text("Nice to meet you, {{name}}.")

	bot, err := b.Build()
*/
package dsl
