package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/runner"
)

var fillCmd = &cobra.Command{
	Use:   "fill <schema-file>",
	Short: "Fill in a form interactively",
	Long: `Walks the form field by field, validating every answer and revealing
conditional fields as their conditions come true. With --session and --redis
the draft is saved after every answer and can be resumed later.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID, _ := cmd.Flags().GetString("session")
		redisAddr, _ := cmd.Flags().GetString("redis")

		eng, err := engineFromFile(args[0])
		if err != nil {
			fmt.Printf("Error loading schema: %v\n", err)
			os.Exit(1)
		}

		handler := runner.NewTextHandler(os.Stdin, os.Stdout)
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
			handler.Renderer = r.Render
		}

		opts := []runner.Option{runner.WithHandler(handler)}
		if sessionID != "" {
			opts = append(opts, runner.WithStore(redis.New(redisAddr)), runner.WithSessionID(sessionID))
		}

		r := runner.NewRunner(eng, opts...)
		if _, err := r.Run(cmd.Context()); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().String("session", "", "Draft ID for persistence")
	fillCmd.Flags().String("redis", "localhost:6379", "Redis address for draft storage")
}
