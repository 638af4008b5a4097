// Package recommend turns a history of observed selection rounds into a ranked
// confidence table for a start position. It performs no I/O and holds no state.
package recommend
