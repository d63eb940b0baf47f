package resp_test

import (
	"bytes"
	"strconv"
	"testing"
	"unicode/utf16"

	"github.com/joomcode/errorx"
	"github.com/joomcode/respipe/redis"
	. "github.com/joomcode/respipe/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRequest(t *testing.T) {
	k, err := AppendRequest(nil, "PING", nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("*1\r\n$4\r\nPING\r\n"), k)

	k, err = AppendRequest(nil, "SET", []interface{}{"key", 1, []byte("val\r\n")})
	assert.NoError(t, err)
	assert.Equal(t, []byte("*4\r\n$3\r\nSET\r\n$3\r\nkey\r\n$1\r\n1\r\n$5\r\nval\r\n\r\n"), k)

	k, err = AppendRequest([]byte("prefix"), "GET", []interface{}{"key", make(chan int)})
	assert.Equal(t, []byte("prefix"), k)
	if assert.Error(t, err) {
		pos, _ := errorx.Cast(err).Property(redis.EKArgPos)
		assert.Equal(t, 1, pos)
	}
}

func TestAppendRequestArgument(t *testing.T) {
	var k []byte
	var err error

	k, err = AppendRequest(nil, "CMD", []interface{}{int(0)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n0\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{uint(1)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n1\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int8(6)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n6\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int8(-31)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$3\r\n-31\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{uint8(156)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$3\r\n156\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int16(781)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$3\r\n781\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int16(-3906)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$5\r\n-3906\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{uint16(19351)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$5\r\n19351\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int32(97656)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$5\r\n97656\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int32(-488281)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$7\r\n-488281\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{uint32(2441406)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$7\r\n2441406\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int64(12207031)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$8\r\n12207031\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int64(-61035156)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$9\r\n-61035156\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{uint64(305175781)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$9\r\n305175781\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int64(9223372036854775807)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$19\r\n9223372036854775807\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{int64(-9223372036854775808)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$20\r\n-9223372036854775808\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{uint64(18446744073709551615)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$20\r\n18446744073709551615\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{float32(0.0)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n0\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{float32(0.25)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$4\r\n0.25\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{float32(-10000.25)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$9\r\n-10000.25\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{float64(0.0)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n0\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{float64(0.25)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$4\r\n0.25\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{float64(-10000.25)})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$9\r\n-10000.25\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{true})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n1\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{false})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$1\r\n0\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{nil})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$0\r\n\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{"asdf"})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$4\r\nasdf\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{[]byte("asdf")})
	assert.Equal(t, []byte("*2\r\n$3\r\nCMD\r\n$4\r\nasdf\r\n"), k)
	assert.NoError(t, err)

	k, err = AppendRequest(nil, "CMD", []interface{}{make(chan int)})
	assert.Nil(t, k)
	if assert.Error(t, err) {
		assert.True(t, errorx.IsOfType(err, redis.ErrArgumentType))
		pos, _ := errorx.Cast(err).Property(redis.EKArgPos)
		assert.Equal(t, 0, pos)
		val, _ := errorx.Cast(err).Property(redis.EKVal)
		assert.Equal(t, "chan int", val)
	}
}

func TestAppendRequest_NonASCII(t *testing.T) {
	str := "привет, 世界 🙂"
	k, err := AppendRequest(nil, "SET", []interface{}{str, []rune(str), utf16.Encode([]rune(str))})
	require.NoError(t, err)
	arg := "$" + strconv.Itoa(len(str)) + "\r\n" + str + "\r\n"
	assert.Equal(t, "*4\r\n$3\r\nSET\r\n"+arg+arg+arg, string(k))
}

func TestAppendRunes(t *testing.T) {
	for _, s := range []string{"", "ascii", "ß", "€uro", "𝄞 clef", "mixed ascii и кириллица 😀"} {
		rs := []rune(s)
		assert.Equal(t, len(s), RunesLen(rs), "%q", s)
		assert.Equal(t, []byte(s), AppendRunes([]byte{}, rs), "%q", s)
	}

	bad := []rune{'a', 0xD800, 0x110000, -1, 'b'}
	assert.Equal(t, "a\uFFFD\uFFFD\uFFFDb", string(AppendRunes(nil, bad)))
	assert.Equal(t, len("a\uFFFD\uFFFD\uFFFDb"), RunesLen(bad))
}

func TestAppendUTF16(t *testing.T) {
	for _, s := range []string{"", "ascii", "ß", "€uro", "𝄞 clef", "😀😀"} {
		u := utf16.Encode([]rune(s))
		assert.Equal(t, len(s), UTF16Len(u), "%q", s)
		assert.Equal(t, []byte(s), AppendUTF16([]byte{}, u), "%q", s)
	}

	// lone high surrogate, lone low surrogate, high surrogate at the end
	bad := []uint16{'a', 0xD83D, 'b', 0xDE00, 'c', 0xD83D}
	assert.Equal(t, "a\uFFFDb\uFFFDc\uFFFD", string(AppendUTF16(nil, bad)))
	assert.Equal(t, len("a\uFFFDb\uFFFDc\uFFFD"), UTF16Len(bad))
}

func TestAppendInt(t *testing.T) {
	for _, i := range []int64{0, 1, 9, 10, 11, 99, 100, 101, 999, 1000, 12345, -1, -10, -99, -100, -123456789,
		9223372036854775807, -9223372036854775808} {
		assert.Equal(t, strconv.FormatInt(i, 10), string(AppendInt(nil, i)))
	}
	for i := int64(-2000); i <= 2000; i++ {
		if !bytes.Equal([]byte(strconv.FormatInt(i, 10)), AppendInt(nil, i)) {
			t.Fatalf("AppendInt(%d) = %q", i, AppendInt(nil, i))
		}
	}
	assert.Equal(t, "18446744073709551615", string(AppendUint([]byte{}, 18446744073709551615)))
	assert.Equal(t, "x42", string(AppendUint([]byte("x"), 42)))
}

func BenchmarkAppendRequest(b *testing.B) {
	args := []interface{}{"some:key:name", 1234567, []byte("some value")}
	buf := make([]byte, 0, 128)
	for i := 0; i < b.N; i++ {
		buf, _ = AppendRequest(buf[:0], "SET", args)
	}
}
