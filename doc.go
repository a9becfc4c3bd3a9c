/*
Package canopy compiles node-link graphs of LLM workers into runnable call hierarchies and
serves persistent, streaming conversations with them.

A graph export (Drawflow JSON or a bare record map) describes a user node, supervisors that
delegate, agents that answer, and the MCP servers those agents may call. Canopy validates the
graph into an immutable workflow, keeps per-node conversation history for every session, and
runs each chat on a bounded pool of workers while relaying intermediate events to the caller
in order.

# Concept

The Studio owns the active workflow. Compiling a new graph swaps it atomically: invocations
already running keep the generation they started with, and its capability connections close
once the last of them finishes. History lives behind ports.Store, so sessions survive restarts
and rebuild their in-memory conversation from whichever backend is configured (memory, files or
Redis).

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/aretw0/canopy"
		"github.com/aretw0/canopy/pkg/adapters/file"
		"github.com/aretw0/canopy/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		studio := canopy.New(
			canopy.WithLLM(&domain.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: os.Getenv("LLM_API_KEY")}),
			canopy.WithStore(file.New(".canopy/sessions")),
		)
		defer studio.Close()

		if _, err := studio.LoadFrom(ctx, file.NewLoader("graph.json")); err != nil {
			log.Fatal(err)
		}

		reply, err := studio.Chat(ctx, "session-123", "What's the weather in Lisbon?")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply)
	}

Use Stream instead of Chat to receive every delegation, tool call and agent response as it
happens.
*/
package canopy
