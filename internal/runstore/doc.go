// Package runstore persists dubbing runs and their stage progress in a
// SQLite database so interrupted pipelines can be inspected and resumed.
package runstore
