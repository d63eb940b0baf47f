package redis

import (
	"net"
	"strconv"

	"github.com/joomcode/errorx"
)

// Redirect is a parsed MOVED or ASK response.
type Redirect struct {
	// Ask is true for ASK redirection, false for MOVED.
	Ask bool
	// Slot is a cluster slot the command was targeted to.
	Slot uint16
	// Host and Port of node that serves the slot.
	Host string
	Port int
}

// Addr returns "host:port" of target node.
func (r Redirect) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// ParseRedirect extracts redirection information from MOVED or ASK error.
func ParseRedirect(err error) (Redirect, bool) {
	e := errorx.Cast(err)
	if e == nil || !e.HasTrait(ErrTraitClusterMove) {
		return Redirect{}, false
	}
	var r Redirect
	r.Ask = e.IsOfType(ErrAsk)
	if v, ok := e.Property(EKSlot); ok {
		r.Slot, _ = v.(uint16)
	}
	if v, ok := e.Property(EKHost); ok {
		r.Host, _ = v.(string)
	}
	if v, ok := e.Property(EKPort); ok {
		r.Port, _ = v.(int)
	}
	return r, true
}
