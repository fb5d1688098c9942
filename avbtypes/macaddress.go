package avbtypes

import "fmt"

// MacAddress is a 6-octet Ethernet address used for stream destination and
// source MAC fields.
type MacAddress [6]byte

// IsZero reports whether the address is all-zero (unset).
func (m MacAddress) IsZero() bool {
	return m == MacAddress{}
}

// IsMulticast reports whether the low bit of the first octet is set, per
// 802.3's I/G bit convention.
func (m MacAddress) IsMulticast() bool {
	return m[0]&0x01 != 0
}

func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMacAddress parses the standard "xx:xx:xx:xx:xx:xx" colon-separated
// hex form.
func ParseMacAddress(s string) (MacAddress, error) {
	var m MacAddress
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&m[0], &m[1], &m[2], &m[3], &m[4], &m[5])
	if err != nil || n != 6 {
		return MacAddress{}, fmt.Errorf("%w: malformed MAC address %q", ErrInvalidParam, s)
	}
	return m, nil
}
