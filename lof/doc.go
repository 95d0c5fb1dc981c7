// Package lof computes Local Outlier Factor scores for a dataset of records
// and ranks the records from most to least anomalous.
//
// The engine runs four phases over an arena of records addressed by
// position: neighbor search, reachability distance, local reachability
// density and LOF aggregation. Every phase completes for all records before
// the next one starts, because densities and scores read other records'
// results of the previous phase. Work inside a phase is spread across
// workers.
//
// Degenerate data is not an error: a zero reachability sum yields a +Inf
// density, and a dataset of identical points yields NaN scores.
package lof
