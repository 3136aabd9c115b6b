package frame

// Correlate reverts the inter-channel decorrelation of a stereo pair of
// subframes in place; a and b hold the samples of subframe 0 and 1. An encoder
// decorrelates audio samples as follows:
//
//	mid = (left + right)/2
//	side = left - right
//
// The side channel carries one extra bit of precision, which is why samples
// are held in 64 bits.
func Correlate(channels Channels, a, b []int64) {
	switch channels {
	case ChannelsLeftSide:
		// 2 channels: left, side; using inter-channel decorrelation.
		left, side := a, b
		for i := range side {
			// right = left - side
			side[i] = left[i] - side[i]
		}
	case ChannelsSideRight:
		// 2 channels: side, right; using inter-channel decorrelation.
		side, right := a, b
		for i := range side {
			// left = right + side
			side[i] = right[i] + side[i]
		}
	case ChannelsMidSide:
		// 2 channels: mid, side; using inter-channel decorrelation.
		mid, side := a, b
		for i := range side {
			// left = (2*mid + side)/2
			// right = (2*mid - side)/2
			m := mid[i]
			s := side[i]
			// The integer division in mid = (left + right)/2 discards the least
			// significant bit. It can be reconstructed however, since a sum A+B
			// and a difference A-B has the same least significant bit.
			m = m<<1 | s&1
			mid[i] = (m + s) >> 1
			side[i] = (m - s) >> 1
		}
	}
}

// Decorrelate performs inter-channel decorrelation of the left and right
// samples of a stereo pair in place, leaving the samples of subframe 0 in left
// and subframe 1 in right. It is the inverse of Correlate.
func Decorrelate(channels Channels, left, right []int64) {
	switch channels {
	case ChannelsLeftSide:
		for i := range right {
			// side = left - right
			right[i] = left[i] - right[i]
		}
	case ChannelsSideRight:
		for i := range left {
			// side = left - right
			left[i] = left[i] - right[i]
		}
	case ChannelsMidSide:
		for i := range left {
			// mid = (left + right) >> 1, an arithmetic shift rounding towards
			// negative infinity.
			l, r := left[i], right[i]
			left[i] = (l + r) >> 1
			right[i] = l - r
		}
	}
}
