package resp

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
	highSurrMax  = 0xDBFF
	lowSurrMin   = 0xDC00
	maxRune      = 0x10FFFF
	replacement  = 0xFFFD
)

func validRune(r rune) rune {
	if r < 0 || r > maxRune || (r >= surrogateMin && r <= surrogateMax) {
		return replacement
	}
	return r
}

// runeBytes returns length of UTF-8 encoding of valid rune.
func runeBytes(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

func appendRune(b []byte, r rune) []byte {
	switch {
	case r < 0x80:
		return append(b, byte(r))
	case r < 0x800:
		return append(b, byte(0xC0|r>>6), byte(0x80|r&0x3F))
	case r < 0x10000:
		return append(b, byte(0xE0|r>>12), byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
	default:
		return append(b, byte(0xF0|r>>18), byte(0x80|(r>>12)&0x3F),
			byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
	}
}

// RunesLen returns number of bytes in UTF-8 encoding of rs.
// Invalid code points are counted as U+FFFD.
func RunesLen(rs []rune) int {
	n := 0
	for _, r := range rs {
		n += runeBytes(validRune(r))
	}
	return n
}

// AppendRunes appends UTF-8 encoding of rs.
// Invalid code points and surrogate halves are replaced with U+FFFD.
func AppendRunes(b []byte, rs []rune) []byte {
	i := 0
	// fast path for ascii prefix
	for ; i < len(rs) && rs[i] >= 0 && rs[i] < 0x80; i++ {
		b = append(b, byte(rs[i]))
	}
	for ; i < len(rs); i++ {
		b = appendRune(b, validRune(rs[i]))
	}
	return b
}

// nextUTF16 decodes code point at s[i], returns it and number of units consumed.
// Unpaired surrogates decode to U+FFFD.
func nextUTF16(s []uint16, i int) (rune, int) {
	c := rune(s[i])
	if c < surrogateMin || c > surrogateMax {
		return c, 1
	}
	if c <= highSurrMax && i+1 < len(s) {
		if d := rune(s[i+1]); d >= lowSurrMin && d <= surrogateMax {
			return 0x10000 + (c-surrogateMin)<<10 + (d - lowSurrMin), 2
		}
	}
	return replacement, 1
}

// UTF16Len returns number of bytes in UTF-8 encoding of UTF-16 text s.
func UTF16Len(s []uint16) int {
	n := 0
	for i := 0; i < len(s); {
		r, k := nextUTF16(s, i)
		n += runeBytes(r)
		i += k
	}
	return n
}

// AppendUTF16 appends UTF-8 encoding of UTF-16 text s. Surrogate pairs are combined
// into single 4-byte sequence.
func AppendUTF16(b []byte, s []uint16) []byte {
	for i := 0; i < len(s); {
		r, k := nextUTF16(s, i)
		b = appendRune(b, r)
		i += k
	}
	return b
}
