/*
Package tendril is the flow core of a controlled-bot builder: the node graph a
bot is made of, the adapter for the backend's loosely-typed wire format, the
editing operations of the visual flow editor and a reference interpreter for
the conversation state machine the graph implies.

# Concept

A bot is an ordered list of nodes. Each node shows a message and either offers
up to ten options, captures free text (input executor) or fetches options from
an external API (api executor). A session walks the graph one turn at a time:
the runtime is stateless and the session manager loads, locks and persists the
state around every transition, so the same engine serves HTTP, MCP and the
terminal playground.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/aretw0/tendril"
	)

	func main() {
		eng, err := tendril.New()
		if err != nil {
			log.Fatal(err)
		}

		doc, err := os.ReadFile("support-bot.json")
		if err != nil {
			log.Fatal(err)
		}
		ctx := context.Background()
		bot, report, err := eng.Import(ctx, doc)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(report.Summary())

		// An empty session id starts a new conversation.
		res, err := eng.Turn(ctx, bot.ID, "", "")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Turn.Type, res.SessionID)

		// Answer with an option id, or free text at input nodes.
		res, err = eng.Turn(ctx, bot.ID, res.SessionID, "o1")
		if err != nil {
			log.Fatal(err)
		}
	}
*/
package tendril
