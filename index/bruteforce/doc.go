// Package bruteforce provides an exact vector index that answers kNN
// queries by computing the Euclidean distance to every vector. Candidates
// with equal distance keep their arena order, so results are reproducible
// for a given input ordering.
package bruteforce
