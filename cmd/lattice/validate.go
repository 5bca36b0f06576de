package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema-file> [data-file]",
	Short: "Validate form data against a schema",
	Long: `Runs a full submit-level validation pass. Without a data file the
schema defaults are validated, which surfaces required fields.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(args []string) error {
	eng, err := engineFromFile(args[0])
	if err != nil {
		return err
	}

	data := eng.InitialSnapshot()
	if len(args) > 1 {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read data file: %w", err)
		}
		var given domain.Snapshot
		if err := json.Unmarshal(raw, &given); err != nil {
			return fmt.Errorf("parse data file: %w", err)
		}
		for id, v := range given {
			data[id] = v
		}
	}

	results := eng.ValidateForSubmit(context.Background(), data)
	printResults(results)
	if !results.IsValid {
		os.Exit(1)
	}
	return nil
}

func printResults(results domain.ValidationResults) {
	for _, id := range results.ErrorFields() {
		for _, msg := range results.ErrorsFor(id) {
			fmt.Printf("  %s: %s\n", id, msg)
		}
	}
	for _, id := range results.Pending {
		fmt.Printf("  %s: remote check pending\n", id)
	}
	if results.IsValid {
		fmt.Println("Data is valid! ✅")
	} else {
		fmt.Println("Data is invalid.")
	}
}

// engineFromFile loads a schema document (JSON or YAML by extension) and
// compiles an engine for it.
func engineFromFile(path string) (*lattice.Engine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var s *schema.Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		s, err = schema.ParseJSON(raw)
	default:
		s, err = schema.ParseYAML(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return lattice.New(s)
}
