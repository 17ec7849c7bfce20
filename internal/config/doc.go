// Package config loads JobDeck API configuration from the environment.
//
// Load reads every setting with a sensible development default; Validate
// reports all problems at once so a misconfigured deploy fails with one
// complete message instead of one error per restart.
//
// One setting deliberately softens in development: an unset SMTP_HOST
// selects the logging transport instead of real SMTP. In production it
// is a validation error.
package config
