/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing form schemas.

It allows developers to define sections, fields, rules and conditional logic using a type-safe,
fluent builder pattern instead of relying on external YAML or JSON files. This is particularly
useful for dynamic schema generation, unit testing, and leveraging IDE autocompletion.

Example usage:

	package main

	import (
		"github.com/aretw0/lattice/pkg/dsl"
		"github.com/aretw0/lattice/pkg/schema"
	)

	func main() {
		form := dsl.NewForm("signup").Name("Sign Up")

		account := form.Section("account")
		account.Field("email", schema.FieldText).
			Required().
			Rules(schema.PatternRule{Pattern: `^[^@]+@[^@]+$`, Message: "invalid email"})
		account.Field("referrer", schema.FieldText).
			VisibleWhen(dsl.NotEmpty("email"))

		s, err := form.Build()
		// ... pass s to lattice.New(...)
		_, _ = s, err
	}
*/
package dsl
