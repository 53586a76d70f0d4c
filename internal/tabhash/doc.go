// Package tabhash implements the seeded 32x32->64 hash primitive shared by
// the MinHash and Fill Sketch signers.
//
// The default implementation is mixed tabulation hashing: the two 32-bit
// inputs are concatenated into a 64-bit key (x in the high half, i in the
// low half), the eight key bytes index simple tabulation tables that also
// emit four derived characters, and the derived characters index a second
// set of tables. Every table is filled from the instance seed, so two
// instances never share mutable state and identical seeds always produce
// identical tables.
package tabhash
