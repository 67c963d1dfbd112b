/*
Package runtime interprets a controlled bot for one conversation.

The Engine is stateless: Start, Navigate and Render take a session State and the
bot graph, and return a new State (or a Turn). Callers persist the result, which
keeps the engine usable from HTTP handlers, MCP tools and the CLI playground alike.
*/
package runtime
