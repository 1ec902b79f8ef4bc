// Package recorder stores engine reports as history records.
//
// Recording is synchronous: Record returns once the record is stored or the
// write timeout expires. Subjects are not stored, only an optional SHA-256
// of their JSON form.
package recorder
