package ldpc

/*
 * LDPC(174,91) code parameters for FT8/FT4
 * Code structure from WSJT-X, algorithm lineage ft8mon (Robert Morris, AB1HL)
 * and ft8_lib by Karlis Goba (YL3JG)
 */

const (
	CodewordBits = 174 // Total bits in an encoded codeword
	MessageBits  = 91  // Systematic payload bits (77 message + 14 CRC)
	NumChecks    = 83  // Parity checks (codeword - message)

	MaxCheckDegree = 7 // Codeword bits per parity check (some checks use fewer)
	VarDegree      = 3 // Parity checks per codeword bit (always exactly 3)

	PayloadBits = 77 // Source-encoded message bits before the CRC
)

// CRC parameters
const (
	CRCPolynomial = 0x2757 // CRC-14 polynomial without the leading 1
	CRCBits       = 14
)

const crcTopBit = 1 << (CRCBits - 1)

// The CRC is computed as if the payload were zero-extended to 82 bits,
// matching WSJT-X message packing.
const crcMessageBits = 82
