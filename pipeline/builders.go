package pipeline

import (
	"strconv"

	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/resp"
)

// Builder converts reply frame into typed value.
// It is never called for error replies: they are returned from Future.Value as is.
type Builder[T any] func(f resp.Frame) (T, error)

func unexpected(f resp.Frame, expected string) error {
	return redis.ErrResponseUnexpected.New("unexpected %s reply, expected %s", f.Kind, expected).
		WithProperty(redis.EKResponse, f.String())
}

func missing(f resp.Frame) error {
	return redis.ErrNil.New("reply is nil").WithProperty(redis.EKResponse, f.String())
}

// Frame returns raw reply.
func Frame(f resp.Frame) (resp.Frame, error) {
	return f, nil
}

// Value returns reply converted with resp.Frame.Value. Nested error replies are kept as values.
func Value(f resp.Frame) (interface{}, error) {
	return f.Value(), nil
}

// Status returns status reply, like "OK" or "QUEUED".
func Status(f resp.Frame) (string, error) {
	if f.Kind != resp.KindStatus {
		return "", unexpected(f, "status")
	}
	return string(f.Str), nil
}

// String returns bulk or status reply as string.
func String(f resp.Frame) (string, error) {
	b, err := Bytes(f)
	return string(b), err
}

// Bytes returns bulk or status reply.
func Bytes(f resp.Frame) ([]byte, error) {
	switch f.Kind {
	case resp.KindBulk:
		if f.Null {
			return nil, missing(f)
		}
		return f.Str, nil
	case resp.KindStatus:
		return f.Str, nil
	}
	return nil, unexpected(f, "bulk")
}

// Int64 returns integer reply.
func Int64(f resp.Frame) (int64, error) {
	switch {
	case f.Kind == resp.KindInteger:
		return f.Int, nil
	case f.Kind == resp.KindBulk && f.Null:
		return 0, missing(f)
	}
	return 0, unexpected(f, "integer")
}

// Bool returns true for integer reply 1, false for other integers.
func Bool(f resp.Frame) (bool, error) {
	v, err := Int64(f)
	return v == 1, err
}

// Float64 parses bulk reply as floating point number (including "inf" and "-inf").
func Float64(f resp.Frame) (float64, error) {
	switch f.Kind {
	case resp.KindInteger:
		return float64(f.Int), nil
	case resp.KindBulk, resp.KindStatus:
		if f.Null {
			return 0, missing(f)
		}
		v, err := strconv.ParseFloat(string(f.Str), 64)
		if err != nil {
			return 0, redis.ErrResponseUnexpected.Wrap(err, "float reply malformed").
				WithProperty(redis.EKResponse, f.String())
		}
		return v, nil
	}
	return 0, unexpected(f, "float")
}

func arrayOf[T any](f resp.Frame, elem func(resp.Frame) (T, error)) ([]T, error) {
	if f.Kind != resp.KindArray {
		return nil, unexpected(f, "array")
	}
	if f.Null {
		return nil, nil
	}
	res := make([]T, len(f.Array))
	for i, item := range f.Array {
		if item.IsError() {
			return nil, item.Err
		}
		v, err := elem(item)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

// Strings returns array reply as strings. Nil elements are returned as empty strings.
func Strings(f resp.Frame) ([]string, error) {
	return arrayOf(f, func(item resp.Frame) (string, error) {
		if item.Kind == resp.KindBulk && item.Null {
			return "", nil
		}
		return String(item)
	})
}

// BytesSlice returns array reply as slices of bytes. Nil elements are returned as nil.
func BytesSlice(f resp.Frame) ([][]byte, error) {
	return arrayOf(f, func(item resp.Frame) ([]byte, error) {
		if item.Kind == resp.KindBulk && item.Null {
			return nil, nil
		}
		return Bytes(item)
	})
}

// StringMap returns array of key-value pairs (HGETALL, CONFIG GET) as map.
func StringMap(f resp.Frame) (map[string]string, error) {
	strs, err := Strings(f)
	if err != nil || strs == nil {
		return nil, err
	}
	if len(strs)%2 != 0 {
		return nil, redis.ErrResponseUnexpected.New("odd number of elements in key-value reply").
			WithProperty(redis.EKResponse, f.String())
	}
	res := make(map[string]string, len(strs)/2)
	for i := 0; i < len(strs); i += 2 {
		res[strs[i]] = strs[i+1]
	}
	return res, nil
}

// ScanPage is a page of SCAN, SSCAN, HSCAN or ZSCAN reply.
type ScanPage struct {
	// Cursor for next call. "0" means iteration is finished.
	Cursor string
	Keys   []string
}

// Scan returns reply of SCAN family commands.
func Scan(f resp.Frame) (ScanPage, error) {
	it, keys, err := redis.ScanResponse(f.Value())
	if err != nil {
		return ScanPage{}, err
	}
	return ScanPage{Cursor: string(it), Keys: keys}, nil
}
