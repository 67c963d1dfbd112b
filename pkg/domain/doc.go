/*
Package domain contains the core domain models of a controlled-style bot.

It defines the node graph authored in the flow editor (Bot, Node, Option, Executor,
Output), the runtime snapshot of one conversation (State) and the response shape of
a conversation turn (Turn). This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Bot: the top-level aggregate, an ordered collection of Nodes.
  - Node: one conversational state (message, optional executor, output mode, options).
  - Option: a labeled edge from a Node to another Node, or an implicit back/end action.
  - Executor: what a Node does before producing output (api call or input capture).
  - State: the runtime snapshot of a session (current node, history, captured values).
  - Turn: the tagged response (options, input, text) the runtime returns per turn.
*/
package domain
