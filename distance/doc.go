// Package distance provides the Euclidean distance used by the neighbor
// finder and the SQL scalar functions. Vectors of different length are
// reported as ErrDimensionMismatch rather than silently truncated.
package distance
