/*
Package runner implements an interactive fill-in loop over a form engine.

It acts as the bridge between the pure validation engine and the outside
world: it walks the rendered fields in order, prompts for values through a
pluggable IOHandler, validates on every answer, and re-prompts until the
form can be submitted.

# Key Components

  - Runner: The main orchestrator driving the prompt/validate loop.
  - IOHandler: Decouples how answers are collected (CLI, scripted, etc.).
  - TextHandler: A standard implementation for interactive CLI usage.

# Usage

	r := runner.NewRunner(engine,
		runner.WithSessionID("user-1"),
		runner.WithStore(store),
	)

	data, err := r.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}
	_ = data
*/
package runner
