package redis

import "strings"

// NumSlots is a number of cluster slots.
const NumSlots = 1 << 14

var crc16tab [256]uint16

func init() {
	for i := range crc16tab {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		crc16tab[i] = crc
	}
}

// CRC16 is a CRC16-CCITT (XMODEM) checksum used by redis cluster.
func CRC16(buf []byte) uint16 {
	var crc uint16
	for _, b := range buf {
		crc = crc<<8 ^ crc16tab[byte(crc>>8)^b]
	}
	return crc
}

// Slot returns cluster slot for a key, respecting hash tags ("{tag}").
func Slot(key string) uint16 {
	if start := strings.IndexByte(key, '{'); start >= 0 {
		if end := strings.IndexByte(key[start+1:], '}'); end > 0 {
			key = key[start+1 : start+1+end]
		}
	}
	return CRC16([]byte(key)) % NumSlots
}

// ReqSlot returns slot number targeted by this command.
func ReqSlot(req Request) (uint16, bool) {
	key, ok := req.Key()
	if !ok {
		return 0, false
	}
	return Slot(key), true
}
