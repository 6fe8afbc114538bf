package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

var expiresMarker = []byte("EXPIRES:")

const (
	// ticksAtUnixEpoch is the number of 100 ns ticks between 0001-01-01 and 1970-01-01 UTC.
	ticksAtUnixEpoch = 621355968000000000
	ticksPerSecond   = 10000000
	// the two high bits of a serialized date carry its kind, not its value
	ticksMask = 0x3FFFFFFFFFFFFFFF
)

var errTruncatedEntry = errors.New("truncated cache entry")

// EncodeEntry appends the expiration trailer to a tile payload.
func EncodeEntry(data []byte, expiration time.Time) []byte {
	buf := make([]byte, 0, len(data)+len(expiresMarker)+8)
	buf = append(buf, data...)
	buf = append(buf, expiresMarker...)
	return binary.LittleEndian.AppendUint64(buf, uint64(timeToTicks(expiration)))
}

// DecodeEntry splits an encoded entry into payload and expiration. An entry without a trailer
// is returned with a zero expiration, i.e. already expired.
func DecodeEntry(buf []byte) (*CacheItem, error) {
	trailer := len(expiresMarker) + 8
	if len(buf) < trailer || !bytes.Equal(buf[len(buf)-trailer:len(buf)-8], expiresMarker) {
		if len(buf) == 0 {
			return nil, errTruncatedEntry
		}
		return &CacheItem{Data: buf}, nil
	}

	ticks := int64(binary.LittleEndian.Uint64(buf[len(buf)-8:]) & ticksMask)
	return &CacheItem{
		Data:       buf[:len(buf)-trailer],
		Expiration: ticksToTime(ticks),
	}, nil
}

func timeToTicks(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond()/100) + ticksAtUnixEpoch
}

func ticksToTime(ticks int64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	ticks -= ticksAtUnixEpoch
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}
