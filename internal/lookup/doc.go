// Package lookup runs the per-identifier state machine: open the portal
// form, then fetch, solve, and submit CAPTCHA challenges until the portal
// accepts one, rejects the identifier, or the attempt budget runs out.
//
// The machine records every attempt it starts, numbered from one with no
// gaps, and an accepted attempt is always the last one recorded. A
// certificate payload exists exactly on success. The portal session is
// closed exactly once on every path out of a lookup.
package lookup
