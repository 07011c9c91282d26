package train

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/trackworks/railcore/internal/consist"
)

// Checksum hashes the movement state of every unit in pool order. Two
// runs from the same scenario and seed produce the same sequence.
func Checksum(units []*consist.Vehicle) uint64 {
	h := xxh3.New()
	var buf [32]byte
	for _, v := range units {
		b := buf[:0]
		b = binary.LittleEndian.AppendUint32(b, uint32(v.Index))
		b = binary.LittleEndian.AppendUint32(b, uint32(v.Tile))
		b = binary.LittleEndian.AppendUint32(b, uint32(v.X))
		b = binary.LittleEndian.AppendUint32(b, uint32(v.Y))
		b = binary.LittleEndian.AppendUint16(b, v.CurSpeed)
		b = binary.LittleEndian.AppendUint16(b, uint16(v.Track))
		b = append(b, v.Z, uint8(v.Direction), uint8(v.Status), uint8(v.Flags), v.Progress, v.SubSpeed)
		_, _ = h.Write(b)
	}
	return h.Sum64()
}
