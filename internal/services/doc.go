// Package services defines the shared error taxonomy used across the
// conversion and atlas pipelines. Failures are tagged with sentinel markers
// so callers can classify them (validation, external tool, timeout,
// cancellation) without string matching, and every wrap carries an
// operator-facing hint describing how to recover.
package services
