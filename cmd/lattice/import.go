package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/pkg/openapi"
)

var importCmd = &cobra.Command{
	Use:   "import <openapi-file> [component...]",
	Short: "Convert OpenAPI component schemas into a form schema",
	Long: `Reads an OpenAPI 3 document and emits a form schema as JSON. Named
components become sections; without names every object schema is imported.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		out, _ := cmd.Flags().GetString("out")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error reading document: %v\n", err)
			os.Exit(1)
		}

		imp := openapi.NewImporter()
		s, err := imp.Import(cmd.Context(), id, raw, args[1:]...)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}

		encoded, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			fmt.Printf("Error encoding schema: %v\n", err)
			os.Exit(1)
		}

		if out == "" {
			fmt.Println(string(encoded))
			return
		}
		if err := os.WriteFile(out, encoded, 0o644); err != nil {
			fmt.Printf("Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", out)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("id", "imported-form", "ID for the generated schema")
	importCmd.Flags().StringP("out", "o", "", "Write the schema to a file instead of stdout")
}
