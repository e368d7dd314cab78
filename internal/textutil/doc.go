// Package textutil provides text processing helpers for marker matching and
// artifact naming.
//
// Fold strips case and diacritics so configured marker phrases match portal
// copy however it is accented. NormalizeName canonicalizes scraped legal
// names to NFC with collapsed whitespace. SanitizeFileName turns identifiers
// into filesystem-safe tokens for artifact filenames.
package textutil
