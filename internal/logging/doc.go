// Package logging builds the slog loggers used throughout vidatlas and
// provides the attribute helpers and progress sampling shared by the
// conversion and atlas pipelines.
package logging
