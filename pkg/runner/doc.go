/*
Package runner drives conversations on top of the stateless engine.

A Runner resolves the bot and the session, runs one transition under the session
lock and renders the resulting turn. The HTTP, MCP and CLI adapters all go through
Runner.Turn; Runner.Run adds the interactive loop used by the terminal playground.

# Key Components

  - Runner: one conversation turn at a time, with per-session serialization.
  - IOHandler: decouples how turns are shown and answers are read.
  - TextHandler: numbered options for interactive terminals.
  - JSONHandler: JSON-Lines for scripted and headless use.

# Usage

	r := runner.New(repo, runtime.NewEngine(), session.NewManager(memory.NewStore()))

	res, err := r.Turn(ctx, "support", "", "")
	if err != nil {
		log.Fatal(err)
	}
	res, err = r.Turn(ctx, "support", res.SessionID, "o-orders")
*/
package runner
