// Package config loads, normalizes, and validates satcerts configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// solver credentials (OPENAI_API_KEY / ANTHROPIC_API_KEY). The Config type
// centralizes every knob the CLI needs: portal URL and selectors, response
// markers, browser settings, solver provider and models, retry policy, and
// output locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved solver provider, and clear validation errors.
package config
