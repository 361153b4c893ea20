// Package dag implements the minimal directed graph backing the parser's
// dependency ordering: edge insertion, reversal, deterministic topological
// sorting and simple-cycle extraction. It deliberately avoids a
// general-purpose graph library; the parser only needs these four
// operations and owns one graph per parse invocation.
package dag
