// Package operations contains the concrete workflow operations: extraction
// and reshaping of mappings, exact decimal arithmetic over formatted NOK
// values, amortization and lending checks, restructuring of listing
// statistics, and validation of user forms into domain aggregates.
//
// Every operation captures its inputs at construction and computes its
// result in Run without touching the network, the filesystem or process
// state.
package operations
