package pmath

import "math/bits"

// CeilToPowerOf2 returns the smallest power of 2 greater than or equal to size.
func CeilToPowerOf2(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// FloorToPowerOf2 returns the largest power of 2 less than or equal to size.
func FloorToPowerOf2(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << (bits.Len64(uint64(size)) - 1)
}

func IsPowerOf2(size int) bool {
	return size > 0 && size&(size-1) == 0
}

// PowerOf2Index returns the exponent of the smallest power of 2 >= size.
func PowerOf2Index(size int) int {
	return bits.TrailingZeros64(uint64(CeilToPowerOf2(size)))
}
