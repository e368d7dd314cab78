// Package records loads the batch input: the ordered list of taxpayer
// identifiers to look up.
//
// Input is a headered CSV with a required rfc column and an optional id
// column used as the sequence correlator in outputs. Malformed rows are
// dropped here, with a count reported, so the lookup core never sees them.
package records
