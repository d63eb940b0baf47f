package redisconn

import (
	"io"
	"time"
)

type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// deadlineIO sets deadline before every read and write, if stream supports deadlines.
type deadlineIO struct {
	to time.Duration
	c  io.ReadWriter
	d  deadliner
}

func newDeadlineIO(c io.ReadWriter, to time.Duration) *deadlineIO {
	d, _ := c.(deadliner)
	dio := &deadlineIO{c: c, d: d}
	dio.setTimeout(to)
	return dio
}

// setTimeout changes timeout for following operations. Non-positive timeout disables deadlines.
func (d *deadlineIO) setTimeout(to time.Duration) {
	if to < 0 {
		to = 0
	}
	if d.to > 0 && to == 0 && d.d != nil {
		d.d.SetReadDeadline(time.Time{})
		d.d.SetWriteDeadline(time.Time{})
	}
	d.to = to
}

func (d *deadlineIO) Write(b []byte) (int, error) {
	if d.to > 0 && d.d != nil {
		d.d.SetWriteDeadline(time.Now().Add(d.to))
	}
	return d.c.Write(b)
}

func (d *deadlineIO) Read(b []byte) (int, error) {
	if d.to > 0 && d.d != nil {
		d.d.SetReadDeadline(time.Now().Add(d.to))
	}
	return d.c.Read(b)
}
