package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/lattice"
)

var checkCmd = &cobra.Command{
	Use:   "check <schema-file>",
	Short: "Check a schema for consistency",
	Long: `Parses and compiles the schema, reporting structural problems such as
unknown field references or malformed rules, then prints a summary of
sections, fields and the dependency graph.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := engineFromFile(args[0])
		if err != nil {
			p := termenv.ColorProfile()
			fmt.Println(termenv.String("✗ " + err.Error()).Foreground(p.Color("#f87171")))
			os.Exit(1)
		}

		report := schemaReport(eng)
		fmt.Print(renderMarkdown(report))

		p := termenv.ColorProfile()
		fmt.Println(termenv.String("Schema is valid! ✅").Foreground(p.Color("#4ade80")))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// schemaReport builds a Markdown summary of the compiled schema.
func schemaReport(eng *lattice.Engine) string {
	s := eng.Schema()
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", titleOrID(s.Name, s.ID))
	if s.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Description)
	}

	for _, sec := range s.SortedSections() {
		fmt.Fprintf(&b, "## %s\n\n", titleOrID(sec.Title, sec.ID))
		for _, f := range sec.Fields {
			fmt.Fprintf(&b, "- **%s** (%s)", f.ID, f.Type)
			var marks []string
			if f.Required {
				marks = append(marks, "required")
			}
			if f.Visible != nil {
				marks = append(marks, "conditional")
			}
			if n := len(f.Rules); n > 0 {
				marks = append(marks, fmt.Sprintf("%d rules", n))
			}
			if len(marks) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(marks, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	var edges []string
	for _, f := range s.Fields() {
		if deps := eng.Dependencies(f.ID); len(deps) > 0 {
			edges = append(edges, fmt.Sprintf("- `%s` reads %s", f.ID, strings.Join(deps, ", ")))
		}
	}
	if len(edges) > 0 {
		b.WriteString("## Dependencies\n\n")
		b.WriteString(strings.Join(edges, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown pretty-prints through glamour on a terminal and falls back
// to the raw Markdown when output is piped.
func renderMarkdown(md string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func titleOrID(title, id string) string {
	if title != "" {
		return title
	}
	return id
}
