// Package curve implements the group package's Scalar, Point, and Group
// interfaces over secp256k1, the curve this module's root identity is
// built on.
//
// Every scalar is reduced modulo the curve order n; every point is
// exchanged in 33-byte compressed form. TaggedHash provides the BIP340
// tagged hash construction (sha256(sha256(tag)||sha256(tag)||data)) so
// that binding factors and Schnorr challenges are domain-separated from
// one another; Group.HashToScalar is plain SHA-256.
//
// The package has no knowledge of FROST, DKG, or capabilities; it is
// the leaf dependency every other package in this module builds on,
// mirroring the bjj package's role for the Baby Jubjub curve.
package curve
