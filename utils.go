package winmd

import (
	"math"
	"math/bits"
)

// alignUp rounds v up to the next multiple of a, which must be a power of two.
func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// alignUp64 is alignUp without the risk of wrapping; callers check the
// result against math.MaxUint32.
func alignUp64(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

func fitsUint32(v uint64) bool {
	return v <= math.MaxUint32
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

// nulPadded returns s followed by a NUL terminator and zero padding up to a
// multiple of four bytes.
func nulPadded(s string) []byte {
	b := make([]byte, alignUp(uint32(len(s)+1), 4))
	copy(b, s)
	return b
}

// popCount is the number of tables present in a valid vector.
func popCount(v uint64) int {
	return bits.OnesCount64(v)
}

func Max(x, y uint32) uint32 {
	if x < y {
		return y
	}
	return x
}
