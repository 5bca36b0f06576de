// Package schema defines the declarative description of a form: sections,
// fields, validation rules, and the condition trees that drive conditional
// logic.
//
// A Schema is immutable once handed to an engine. Validation rules form a
// closed tagged union (Rule and its variants) so the engine can evaluate
// them with a type switch instead of runtime shape probing. Conditions are
// tagged trees combining leaf comparisons with all/any/not.
//
// Documents are plain structured data; ParseJSON and ParseYAML decode and
// structurally validate them:
//
//	s, err := schema.ParseJSON(raw)
//	if err != nil {
//	    var serr *schema.SchemaError
//	    if errors.As(err, &serr) {
//	        // duplicate ids, dangling references, malformed rules...
//	    }
//	}
//
// Structural failures are fatal at load time: a form cannot be instantiated
// from a schema with duplicate field IDs or dangling field references.
package schema
