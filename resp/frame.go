package resp

import (
	"strconv"

	"github.com/joomcode/errorx"
)

// Kind is a type of reply frame.
type Kind uint8

const (
	// KindStatus is "+..." reply.
	KindStatus Kind = iota + 1
	// KindError is "-..." reply.
	KindError
	// KindInteger is ":..." reply.
	KindInteger
	// KindBulk is "$..." reply.
	KindBulk
	// KindArray is "*..." reply.
	KindArray
)

var kindName = [...]string{
	KindStatus:  "status",
	KindError:   "error",
	KindInteger: "integer",
	KindBulk:    "bulk",
	KindArray:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindName) && kindName[k] != "" {
		return kindName[k]
	}
	return "kind" + strconv.Itoa(int(k))
}

// Frame is a single decoded reply.
//
// Only fields relevant to Kind are set:
//   KindStatus  - Str
//   KindError   - Err
//   KindInteger - Int
//   KindBulk    - Str, or Null for "$-1"
//   KindArray   - Array, or Null for "*-1"
// Null bulk/array is never equal to empty one: empty bulk has non-nil zero length Str.
type Frame struct {
	Kind  Kind
	Null  bool
	Str   []byte
	Int   int64
	Array []Frame
	Err   *errorx.Error
}

// Status constructs status frame.
func Status(s string) Frame { return Frame{Kind: KindStatus, Str: []byte(s)} }

// Bulk constructs bulk frame.
func Bulk(b []byte) Frame {
	if b == nil {
		b = []byte{}
	}
	return Frame{Kind: KindBulk, Str: b}
}

// NullBulk constructs "$-1" frame.
func NullBulk() Frame { return Frame{Kind: KindBulk, Null: true} }

// Integer constructs integer frame.
func Integer(v int64) Frame { return Frame{Kind: KindInteger, Int: v} }

// Array constructs array frame.
func Array(items ...Frame) Frame {
	if items == nil {
		items = []Frame{}
	}
	return Frame{Kind: KindArray, Array: items}
}

// NullArray constructs "*-1" frame.
func NullArray() Frame { return Frame{Kind: KindArray, Null: true} }

// ErrorFrame constructs error frame.
func ErrorFrame(err *errorx.Error) Frame { return Frame{Kind: KindError, Err: err} }

// IsError reports whether frame is an error reply.
func (f Frame) IsError() bool { return f.Kind == KindError }

// IsNull reports whether frame is a missing bulk or missing array.
func (f Frame) IsNull() bool { return f.Null }

// Value converts frame into plain go value:
//
//  redis        | go
//  -------------|-------
//  plain string | string
//  bulk string  | []byte
//  integer      | int64
//  array        | []interface{}
//  error        | *errorx.Error
//  nil          | nil
func (f Frame) Value() interface{} {
	switch f.Kind {
	case KindStatus:
		return string(f.Str)
	case KindError:
		return f.Err
	case KindInteger:
		return f.Int
	case KindBulk:
		if f.Null {
			return nil
		}
		return f.Str
	case KindArray:
		if f.Null {
			return nil
		}
		res := make([]interface{}, len(f.Array))
		for i := range f.Array {
			res[i] = f.Array[i].Value()
		}
		return res
	}
	return nil
}

// String returns debug representation of frame.
func (f Frame) String() string {
	switch f.Kind {
	case KindStatus:
		return "+" + strconv.Quote(string(f.Str))
	case KindError:
		return "-" + f.Err.Message()
	case KindInteger:
		return ":" + strconv.FormatInt(f.Int, 10)
	case KindBulk:
		if f.Null {
			return "$nil"
		}
		return "$" + strconv.Quote(string(f.Str))
	case KindArray:
		if f.Null {
			return "*nil"
		}
		s := "["
		for i := range f.Array {
			if i > 0 {
				s += " "
			}
			s += f.Array[i].String()
		}
		return s + "]"
	}
	return "<invalid frame>"
}
