package pow

import (
	"encoding/binary"
	"math/bits"
)

const (
	// sha3-256 sponge parameters
	rate       = 136
	digestSize = 32

	// DeepSeekHashV1 runs the permutation from round 1, skipping round 0.
	v1FirstRound = 1
)

var roundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808A, 0x8000000080008000,
	0x000000000000808B, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008A, 0x0000000000000088, 0x0000000080008009, 0x000000008000000A,
	0x000000008000808B, 0x800000000000008B, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800A, 0x800000008000000A,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

var rotations = [24]int{1, 3, 6, 10, 15, 21, 28, 36, 45, 55, 2, 14, 27, 41, 56, 8, 25, 43, 62, 18, 39, 61, 20, 44}

var piLanes = [24]int{10, 7, 11, 17, 18, 3, 5, 16, 8, 21, 24, 4, 15, 23, 19, 13, 12, 2, 20, 14, 22, 9, 6, 1}

// keccakF applies Keccak-f[1600] rounds firstRound..23 to st.
func keccakF(st *[25]uint64, firstRound int) {
	var bc [5]uint64
	for r := firstRound; r < 24; r++ {
		// theta
		for i := 0; i < 5; i++ {
			bc[i] = st[i] ^ st[i+5] ^ st[i+10] ^ st[i+15] ^ st[i+20]
		}
		for i := 0; i < 5; i++ {
			t := bc[(i+4)%5] ^ bits.RotateLeft64(bc[(i+1)%5], 1)
			for j := 0; j < 25; j += 5 {
				st[j+i] ^= t
			}
		}

		// rho and pi
		t := st[1]
		for i := 0; i < 24; i++ {
			j := piLanes[i]
			bc[0] = st[j]
			st[j] = bits.RotateLeft64(t, rotations[i])
			t = bc[0]
		}

		// chi
		for j := 0; j < 25; j += 5 {
			for i := 0; i < 5; i++ {
				bc[i] = st[j+i]
			}
			for i := 0; i < 5; i++ {
				st[j+i] ^= ^bc[(i+1)%5] & bc[(i+2)%5]
			}
		}

		// iota
		st[0] ^= roundConstants[r]
	}
}

func xorBlock(st *[25]uint64, block []byte) {
	for i := 0; i < rate/8; i++ {
		st[i] ^= binary.LittleEndian.Uint64(block[i*8:])
	}
}

// sum256 is a sha3-256 sponge over a permutation starting at firstRound.
func sum256(data []byte, firstRound int) [digestSize]byte {
	var st [25]uint64
	for len(data) >= rate {
		xorBlock(&st, data[:rate])
		keccakF(&st, firstRound)
		data = data[rate:]
	}

	var last [rate]byte
	copy(last[:], data)
	last[len(data)] ^= 0x06
	last[rate-1] ^= 0x80
	xorBlock(&st, last[:])
	keccakF(&st, firstRound)

	var out [digestSize]byte
	for i := 0; i < digestSize/8; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], st[i])
	}
	return out
}

// Sum256V1 returns the DeepSeekHashV1 digest of data.
func Sum256V1(data []byte) [32]byte {
	return sum256(data, v1FirstRound)
}
