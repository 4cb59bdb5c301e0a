package chord

import (
	"crypto/sha1"
	"encoding/binary"
)

// M is the bit width of the identifier space. The ring has N = 2^M
// positions; hashing a string or an "ip:port" pair yields an ID in [0, N).
const M = 16

// N is the size of the ring, 2^M.
const N uint32 = 1 << M

// ID is a position on the ring, in [0, N).
type ID uint16

// Hash reduces s to an identifier by taking the low M bits of its SHA1
// digest, treated as a big-endian integer. Deterministic and stable: the
// same string always hashes to the same ID.
func Hash(s string) ID {
	sum := sha1.Sum([]byte(s))
	// The low 16 bits of the digest, read big-endian from the last two bytes.
	v := binary.BigEndian.Uint16(sum[len(sum)-2:])
	return ID(v)
}

// add2Pow returns (id + 2^exp) mod N.
func add2Pow(id ID, exp int) ID {
	offset := uint32(1) << uint(exp)
	return ID((uint32(id) + offset) % N)
}

// InArc tests whether x lies on the clockwise arc from a to b, with the
// endpoints included or excluded per incLeft/incRight. When a > b the arc
// wraps through 0.
func InArc(x, a, b ID, incLeft, incRight bool) bool {
	if a == b {
		return incLeft && incRight && x == a
	}
	if a < b {
		left := x > a
		if incLeft {
			left = x >= a
		}
		right := x < b
		if incRight {
			right = x <= b
		}
		return left && right
	}
	// a > b: the arc wraps through 0. x qualifies if it satisfies either
	// half of the split interval.
	leftHalf := x > a
	if incLeft {
		leftHalf = x >= a
	}
	rightHalf := x < b
	if incRight {
		rightHalf = x <= b
	}
	return leftHalf || rightHalf
}

// InHalfOpenRight is the canonical arc test used throughout routing: (a, b].
func InHalfOpenRight(x, a, b ID) bool {
	return InArc(x, a, b, false, true)
}
