// Package errors provides structured, actionable error messages for the
// plugin marketplace.
//
// Every error has a stable code (e.g., "E100") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Error Categories
//
//   - catalog: registry lookups, registration and catalog sources
//   - config: marketplace.json and environment overrides
//   - install: installer state (already installed, bad version, settings)
//   - cli: command-line input such as malformed plugin references
//   - io: filesystem failures
//
// The installer reports expected failures (not found, already installed,
// unknown version) as result values carrying one of these codes; only
// filesystem failures travel as Go errors.
//
// # Usage
//
//	err := errors.New(errors.CodeNotFound).
//	    WithDetail("Plugin acme/widget is not in the registry").
//	    WithSuggestion("Run 'marketplace search widget' to find similar plugins")
//
//	fmt.Println(err.Format())
package errors
