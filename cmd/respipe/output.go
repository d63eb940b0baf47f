package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joomcode/respipe/resp"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer writes replies in configured format.
type printer struct {
	w      io.Writer
	format string
}

func (p printer) Print(f resp.Frame) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		return enc.Encode(plain(f))
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(plain(f)); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(p.w, text(f, 0))
		return err
	}
}

// PrintValue writes arbitrary data, e.g. statistics.
func (p printer) PrintValue(v interface{}) error {
	switch p.format {
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		return json.NewEncoder(p.w).Encode(v)
	default:
		_, err := fmt.Fprintf(p.w, "%+v\n", v)
		return err
	}
}

// plain converts frame to value encodable to json and yaml.
// Error reply is converted to {"error": message}.
func plain(f resp.Frame) interface{} {
	switch f.Kind {
	case resp.KindStatus:
		return string(f.Str)
	case resp.KindError:
		return map[string]string{"error": f.Err.Message()}
	case resp.KindInteger:
		return f.Int
	case resp.KindBulk:
		if f.Null {
			return nil
		}
		return string(f.Str)
	case resp.KindArray:
		if f.Null {
			return nil
		}
		res := make([]interface{}, len(f.Array))
		for i, item := range f.Array {
			res[i] = plain(item)
		}
		return res
	}
	return nil
}

// text formats frame the way redis-cli does.
func text(f resp.Frame, indent int) string {
	switch f.Kind {
	case resp.KindStatus:
		return string(f.Str) + "\n"
	case resp.KindError:
		return "(error) " + f.Err.Message() + "\n"
	case resp.KindInteger:
		return "(integer) " + strconv.FormatInt(f.Int, 10) + "\n"
	case resp.KindBulk:
		if f.Null {
			return "(nil)\n"
		}
		return strconv.Quote(string(f.Str)) + "\n"
	case resp.KindArray:
		if f.Null {
			return "(nil)\n"
		}
		if len(f.Array) == 0 {
			return "(empty array)\n"
		}
		var b strings.Builder
		width := len(strconv.Itoa(len(f.Array)))
		for i, item := range f.Array {
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				b.WriteString(strings.Repeat(" ", indent))
			}
			b.WriteString(prefix)
			b.WriteString(text(item, indent+len(prefix)))
		}
		return b.String()
	}
	return "(unknown)\n"
}
