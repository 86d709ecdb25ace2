// Package formatting renders command results as a table, JSON or YAML.
//
// Results implement Tabular so the same value can be printed in every
// format: JSON and YAML marshal the value itself, while the table format
// asks it for a header and rows.
package formatting
