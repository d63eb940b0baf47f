package resp

import (
	"fmt"
	"strconv"

	"github.com/joomcode/respipe/redis"
)

// digitPairs is "00010203...9899": two decimal digits per index.
var digitPairs [200]byte

func init() {
	for i := 0; i < 100; i++ {
		digitPairs[i*2] = byte(i/10) + '0'
		digitPairs[i*2+1] = byte(i%10) + '0'
	}
}

// CheckArgs checks that every argument could be serialized.
func CheckArgs(args []interface{}) error {
	for i, val := range args {
		switch val.(type) {
		case nil, string, []byte, []rune, []uint16,
			int, uint, int64, uint64, int32, uint32, int16, uint16, int8, uint8,
			float32, float64, bool:
		default:
			return redis.ErrArgumentType.New("command argument type not supported").
				WithProperty(redis.EKVal, fmt.Sprintf("%T", val)).
				WithProperty(redis.EKArgPos, i)
		}
	}
	return nil
}

// AppendRequest appends request to buf.
// Buf is not changed if some argument could not be serialized.
func AppendRequest(buf []byte, cmd string, args []interface{}) ([]byte, error) {
	if err := CheckArgs(args); err != nil {
		return buf, err
	}
	buf = appendHead(buf, '*', int64(len(args)+1))
	buf = appendHead(buf, '$', int64(len(cmd)))
	buf = append(buf, cmd...)
	buf = append(buf, '\r', '\n')
	for _, val := range args {
		buf = appendArg(buf, val)
	}
	return buf, nil
}

// appendArg appends argument as bulk string. Argument should be checked with CheckArgs.
func appendArg(buf []byte, val interface{}) []byte {
	switch v := val.(type) {
	case nil:
		buf = append(buf, '$', '0', '\r', '\n')
	case string:
		buf = appendHead(buf, '$', int64(len(v)))
		buf = append(buf, v...)
	case []byte:
		buf = appendHead(buf, '$', int64(len(v)))
		buf = append(buf, v...)
	case []rune:
		buf = appendHead(buf, '$', int64(RunesLen(v)))
		buf = AppendRunes(buf, v)
	case []uint16:
		buf = appendHead(buf, '$', int64(UTF16Len(v)))
		buf = AppendUTF16(buf, v)
	case int:
		buf = appendBulkInt(buf, int64(v))
	case uint:
		buf = appendBulkUint(buf, uint64(v))
	case int64:
		buf = appendBulkInt(buf, v)
	case uint64:
		buf = appendBulkUint(buf, v)
	case int32:
		buf = appendBulkInt(buf, int64(v))
	case uint32:
		buf = appendBulkInt(buf, int64(v))
	case int16:
		buf = appendBulkInt(buf, int64(v))
	case uint16:
		buf = appendBulkInt(buf, int64(v))
	case int8:
		buf = appendBulkInt(buf, int64(v))
	case uint8:
		buf = appendBulkInt(buf, int64(v))
	case float32:
		str := strconv.FormatFloat(float64(v), 'f', -1, 32)
		buf = appendHead(buf, '$', int64(len(str)))
		buf = append(buf, str...)
	case float64:
		str := strconv.FormatFloat(v, 'f', -1, 64)
		buf = appendHead(buf, '$', int64(len(str)))
		buf = append(buf, str...)
	case bool:
		if v {
			buf = append(buf, "$1\r\n1"...)
		} else {
			buf = append(buf, "$1\r\n0"...)
		}
	}
	return append(buf, '\r', '\n')
}

// AppendInt appends decimal representation of i.
func AppendInt(b []byte, i int64) []byte {
	if i < 0 {
		b = append(b, '-')
		return AppendUint(b, uint64(-i))
	}
	return AppendUint(b, uint64(i))
}

// AppendUint appends decimal representation of u, two digits at a time.
func AppendUint(b []byte, u uint64) []byte {
	var digits [20]byte
	p := len(digits)
	for u >= 100 {
		q := u / 100
		r := (u - q*100) * 2
		p -= 2
		digits[p], digits[p+1] = digitPairs[r], digitPairs[r+1]
		u = q
	}
	if u >= 10 {
		p -= 2
		digits[p], digits[p+1] = digitPairs[u*2], digitPairs[u*2+1]
	} else {
		p--
		digits[p] = byte(u) + '0'
	}
	return append(b, digits[p:]...)
}

func appendHead(b []byte, t byte, i int64) []byte {
	b = append(b, t)
	b = AppendInt(b, i)
	return append(b, '\r', '\n')
}

func appendBulkInt(b []byte, i int64) []byte {
	var digits [24]byte
	num := AppendInt(digits[:0], i)
	b = appendHead(b, '$', int64(len(num)))
	return append(b, num...)
}

func appendBulkUint(b []byte, u uint64) []byte {
	var digits [24]byte
	num := AppendUint(digits[:0], u)
	b = appendHead(b, '$', int64(len(num)))
	return append(b, num...)
}
