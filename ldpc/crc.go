package ldpc

/*
 * CRC-14 for FT8/FT4 payloads
 * Polynomial 0x2757, per WSJT-X; bit-serial form from ft8mon, byte-packed
 * form adapted from https://barrgroup.com/Embedded-Systems/How-To/CRC-Calculation-C-Code
 */

import "fmt"

// crcDivisor is the 14-bit generator polynomial with its leading 1 bit.
var crcDivisor = [CRCBits + 1]uint8{1, 1, 0, 0, 1, 1, 1, 0, 1, 0, 1, 0, 1, 1, 1}

// CRC14 computes the 14-bit checksum of a message given as individual bits
// (0/1, MSB first), by long division: the message is extended with 14 zero
// bits and the generator polynomial is XORed in under every set bit. The
// final 14 bits of the extended buffer are the checksum.
func CRC14(msg []uint8) []uint8 {
	buf := make([]uint8, len(msg)+CRCBits)
	copy(buf, msg)

	for i := 0; i < len(msg); i++ {
		if buf[i] != 0 {
			for j := 0; j <= CRCBits; j++ {
				buf[i+j] ^= crcDivisor[j]
			}
		}
	}

	return buf[len(msg):]
}

// ComputeCRC calculates the same checksum over a byte-packed message
// (MSB first), numBits bits long, returned as an integer.
func ComputeCRC(message []uint8, numBits int) uint16 {
	remainder := uint16(0)
	idxByte := 0

	for idxBit := 0; idxBit < numBits; idxBit++ {
		if idxBit%8 == 0 {
			remainder ^= uint16(message[idxByte]) << (CRCBits - 8)
			idxByte++
		}

		if remainder&crcTopBit != 0 {
			remainder = (remainder << 1) ^ CRCPolynomial
		} else {
			remainder = remainder << 1
		}
	}

	return remainder & ((crcTopBit << 1) - 1)
}

// CheckCRC reports whether a decoded 91-bit payload (77 message bits followed
// by the 14-bit checksum) is internally consistent. The checksum covers the
// message zero-extended to 82 bits, matching WSJT-X packing.
func CheckCRC(bits []uint8) (bool, error) {
	if len(bits) < MessageBits {
		return false, fmt.Errorf("ldpc: payload length %d, want at least %d", len(bits), MessageBits)
	}

	extended := make([]uint8, crcMessageBits)
	copy(extended, bits[:PayloadBits])
	want := CRC14(extended)

	for i := 0; i < CRCBits; i++ {
		if bits[PayloadBits+i] != want[i] {
			return false, nil
		}
	}
	return true, nil
}

// AppendCRC extends a 77-bit payload to the 91-bit systematic message by
// appending its checksum.
func AppendCRC(payload []uint8) ([]uint8, error) {
	if len(payload) != PayloadBits {
		return nil, fmt.Errorf("ldpc: payload length %d, want %d", len(payload), PayloadBits)
	}

	extended := make([]uint8, crcMessageBits)
	copy(extended, payload)
	crc := CRC14(extended)

	msg := make([]uint8, 0, MessageBits)
	msg = append(msg, payload...)
	msg = append(msg, crc...)
	return msg, nil
}

// PackBits packs an array of bits (0/1) into bytes, MSB first.
func PackBits(bits []uint8, numBits int) []uint8 {
	packed := make([]uint8, (numBits+7)/8)
	for i := 0; i < numBits; i++ {
		if bits[i] != 0 {
			packed[i/8] |= 1 << (7 - (i % 8))
		}
	}
	return packed
}

// UnpackBits expands byte-packed data into individual bits, MSB first.
func UnpackBits(packed []uint8, numBits int) []uint8 {
	bits := make([]uint8, numBits)
	for i := 0; i < numBits; i++ {
		bits[i] = (packed[i/8] >> (7 - (i % 8))) & 1
	}
	return bits
}
