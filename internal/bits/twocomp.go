package bits

// IntN sign-extends the n-bit two's complement integer held in the n least
// significant bits of x, where 1 <= n <= 64. Bits above n are ignored.
//
//	x=0b011, n=3 => 3
//	x=0b100, n=3 => -4
//	x=0b111, n=3 => -1
func IntN(x uint64, n uint) int64 {
	shift := 64 - n
	return int64(x<<shift) >> shift
}
