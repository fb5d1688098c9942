// Package crf implements the Clock Reference Format AVTP stream: encoding
// and decoding a vector of timestamps per PDU, driving (transmit) or
// feeding (receive) a clock.Domain.
//
// Grounded on spec.md §4.5.
package crf
