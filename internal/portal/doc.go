// Package portal drives the certificate-recovery form of the SAT portal
// through a headless Chrome instance.
//
// One Browser (one Chrome process) serves a whole run. Each identifier gets
// its own Session on a fresh tab, so a wedged page never leaks into the next
// lookup. A Session exposes the three operations the lookup state machine
// needs: Open the form, FetchCaptcha as a PNG element screenshot, and Submit
// a (rfc, solution) pair. Submit classifies the response page with the
// configured markers and, on acceptance, parses the recovered certificate
// table.
//
// All element locations come from configured selector fallback lists; the
// portal's markup is not stable and nothing here hardcodes it.
package portal
