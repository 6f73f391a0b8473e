// Package validation provides the configuration and filesystem checks
// that gate a maintenance run.
//
// Two error types carry the outcome:
//
//   - FieldError: a configuration value failed validation (wrong range,
//     unparseable, unknown key). These map to the configuration-error
//     exit status.
//   - PathError: a required directory is not writable or creatable.
//     These map to the permission-error exit status.
//
// Keeping the two as distinct types lets the CLI translate failures to
// exit codes with errors.As instead of string matching.
package validation
