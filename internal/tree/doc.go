// Package tree links extracted sections into the parent/child hierarchy of a
// regulation.
//
// The builder keeps a stack of open sections. For each new section it pops
// every entry whose depth is greater than or equal to the new depth; the
// entry left on top, if any, becomes the parent. Because every parent index
// precedes its child, the parent graph is acyclic by construction and
// Validate only has to confirm the depth ordering.
//
//	f := tree.Build(result.Sections)
//	for _, i := range f.Ancestors(k) {
//	    fmt.Println(f.Nodes[i].Section.Label)
//	}
package tree
