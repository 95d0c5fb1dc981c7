// Package index defines a minimal abstraction for exact k-nearest-neighbor
// search over an ordered arena of feature vectors. Records are addressed by
// their position in the arena. Implementations in this module include a
// brute-force baseline.
package index
