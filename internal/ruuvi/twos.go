package ruuvi

// SignedValue combines hi and lo big-endian and reinterprets the result as a
// twos-complement integer of the given bit width.
func SignedValue(hi, lo byte, bits uint) int {
	v := int(hi)<<8 | int(lo)
	if v&(1<<(bits-1)) != 0 {
		v -= 1 << bits
	}
	return v
}

func unsigned16(hi, lo byte) int {
	return int(hi)<<8 | int(lo)
}
