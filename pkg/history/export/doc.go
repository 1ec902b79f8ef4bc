// Package export writes history records as JSON or CSV.
package export
