// Package clock defines the ClockDomain abstraction shared by every stream
// type for anchoring sample counts and packet launch times to a time
// reference, plus the PtpSource contract this module consumes but never
// implements (PTP synthesis is out of scope).
package clock
