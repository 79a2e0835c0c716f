// Package errors provides structured, actionable error messages for uiforge.
//
// Every failure the engine surfaces carries a stable code, a category and,
// for workflow failures, the step that failed so a human can finish the
// remaining steps by hand.
//
// # Error Categories
//
//   - validation: malformed identifiers or selections, rejected before any mutation
//   - collaborator: the scaffold generator is unreachable or timed out
//   - structural: a mutation would leave a file with unbalanced braces
//   - walk: some files of a tree pass could not be read or written
//   - catalog: the catalog document could not be read or persisted
//   - config, cli: uiforge.json and command line problems
//
// # Usage
//
//	err := errors.New("E210").
//	    WithStep(errors.StepScaffold).
//	    WithSuggestion("Start the helper with 'uiforge serve'")
//
//	fmt.Println(err.Format())
//
// The CLI prints failures with Fprint, in the form picked by --error-format:
//
//	errors.Fprint(os.Stderr, err, errors.OutputCompact)
package errors
