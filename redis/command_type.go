package redis

import "strings"

// modeSwitching are commands that put connection into another communication mode
// (push messages or monitoring), so their replies never fit into request-response pipeline.
var modeSwitching = map[string]struct{}{
	"SUBSCRIBE":    {},
	"PSUBSCRIBE":   {},
	"SSUBSCRIBE":   {},
	"UNSUBSCRIBE":  {},
	"PUNSUBSCRIBE": {},
	"SUNSUBSCRIBE": {},
	"MONITOR":      {},
	"SYNC":         {},
	"PSYNC":        {},
}

// Dangerous returns true if command switches connection into other mode, and therefore
// could not be sent through pipeline.
func Dangerous(cmd string) bool {
	_, ok := modeSwitching[strings.ToUpper(cmd)]
	return ok
}

