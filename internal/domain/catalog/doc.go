// Package catalog holds the product-type schema aggregate: attribute definitions,
// enumerated and lookup options, group compositions and the publish-time
// consistency rules (acyclic dependencies, option scoping, allow-lists).
//
// Back-references (dependent attribute -> parent attribute, scoped option ->
// parent option, group -> members) are plain IDs resolved through the owning
// ProductType, so the graph stays serializable and cycle detection works over keys.
package catalog
