package redis_test

import (
	"testing"

	"github.com/joomcode/errorx"
	. "github.com/joomcode/respipe/redis"
	"github.com/stretchr/testify/assert"
)

func TestScanResponse(t *testing.T) {
	it, keys, err := ScanResponse([]interface{}{[]byte("17"), []interface{}{[]byte("a"), []byte("b")}})
	assert.NoError(t, err)
	assert.Equal(t, []byte("17"), it)
	assert.Equal(t, []string{"a", "b"}, keys)

	it, keys, err = ScanResponse([]interface{}{[]byte("0"), []interface{}{}})
	assert.NoError(t, err)
	assert.Equal(t, []byte("0"), it)
	assert.Empty(t, keys)

	rerr := ErrResult.New("ERR wrong")
	_, _, err = ScanResponse(rerr)
	assert.Equal(t, rerr, err)

	for _, bad := range []interface{}{
		nil,
		int64(1),
		[]interface{}{[]byte("0")},
		[]interface{}{int64(0), []interface{}{}},
		[]interface{}{[]byte("0"), []byte("a")},
		[]interface{}{[]byte("0"), []interface{}{int64(1)}},
	} {
		_, _, err = ScanResponse(bad)
		assert.True(t, errorx.IsOfType(err, ErrResponseUnexpected), "%#v", bad)
	}
}
