// Package observability provides test doubles for the logging, metrics and tracing interfaces of the frozen packages.
package observability
