package badgerstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
)

// Block layout: dtype byte, uvarint rank, uvarint per dim, then one
// little-endian IEEE 754 float64 per element in row-major order.

var errCorruptBlock = errors.New("corrupt chunk block")

func encodeBlock(a *ndarray.Array) []byte {
	buf := make([]byte, 0, 1+binary.MaxVarintLen64*(1+len(a.Shape))+8*len(a.Data))
	buf = append(buf, byte(a.DType))
	buf = binary.AppendUvarint(buf, uint64(len(a.Shape)))
	for _, n := range a.Shape {
		buf = binary.AppendUvarint(buf, uint64(n))
	}
	for _, v := range a.Data {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func decodeBlock(buf []byte) (*ndarray.Array, error) {
	if len(buf) == 0 {
		return nil, errCorruptBlock
	}
	dt := dtype.DType(buf[0])
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: unknown dtype %d", errCorruptBlock, buf[0])
	}
	buf = buf[1:]

	rank, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad rank", errCorruptBlock)
	}
	buf = buf[n:]
	shape := make([]int, rank)
	for i := range shape {
		size, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, fmt.Errorf("%w: bad shape", errCorruptBlock)
		}
		shape[i] = int(size)
		buf = buf[n:]
	}

	count := ndarray.Size(shape)
	if len(buf) != 8*count {
		return nil, fmt.Errorf("%w: %d data bytes for %d elements", errCorruptBlock, len(buf), count)
	}
	out := ndarray.New(dt, shape)
	for i := range out.Data {
		out.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}
