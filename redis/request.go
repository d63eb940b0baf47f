package redis

import (
	"strconv"
	"strings"
)

// Req - convenient wrapper to create Request.
func Req(cmd string, args ...interface{}) Request {
	return Request{cmd, args}
}

// Request represents request to be passed to redis.
type Request struct {
	// Cmd is a redis command name.
	Cmd string
	// Args is a list of arguments for command.
	Args []interface{}
}

func (r Request) String() string {
	args := make([]string, 0, len(r.Args)+1)
	args = append(args, r.Cmd)
	for _, arg := range r.Args {
		if s, ok := ArgToString(arg); ok {
			args = append(args, strconv.Quote(s))
		} else {
			args = append(args, "?")
		}
	}
	return "Req(" + strings.Join(args, ", ") + ")"
}

// Key returns first field of request that should be used as a key for redis cluster.
func (r Request) Key() (string, bool) {
	if r.Cmd == "RANDOMKEY" {
		return "RANDOMKEY", false
	}
	var n int
	switch r.Cmd {
	case "EVAL", "EVALSHA":
		n = 2
	case "BITOP":
		n = 1
	default:
		n = 0
	}
	if len(r.Args) <= n {
		return "", false
	}
	return ArgToString(r.Args[n])
}

// ArgToString returns string representataion of an argument.
// Used by Request.Key to compute slot, and by Request.String.
func ArgToString(arg interface{}) (string, bool) {
	var k string
	switch v := arg.(type) {
	case nil:
		k = ""
	case string:
		k = v
	case []byte:
		k = string(v)
	case []rune:
		k = string(v)
	case int:
		k = strconv.FormatInt(int64(v), 10)
	case uint:
		k = strconv.FormatUint(uint64(v), 10)
	case int64:
		k = strconv.FormatInt(v, 10)
	case uint64:
		k = strconv.FormatUint(v, 10)
	case int32:
		k = strconv.FormatInt(int64(v), 10)
	case uint32:
		k = strconv.FormatUint(uint64(v), 10)
	case int16:
		k = strconv.FormatInt(int64(v), 10)
	case uint16:
		k = strconv.FormatUint(uint64(v), 10)
	case int8:
		k = strconv.FormatInt(int64(v), 10)
	case uint8:
		k = strconv.FormatUint(uint64(v), 10)
	case float32:
		k = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		k = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			k = "1"
		} else {
			k = "0"
		}
	default:
		return "", false
	}
	return k, true
}
