package partkv

import "io"

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

// bytesBuilder is an io.ByteWriter-capable append target for msgpack.
type bytesBuilder struct {
	Buf []byte
}

var (
	_ io.Writer     = (*bytesBuilder)(nil)
	_ io.ByteWriter = (*bytesBuilder)(nil)
)

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(ensureCapacity(bb.Buf, len(bb.Buf)+len(b)), b...)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	bb.Buf = append(ensureCapacity(bb.Buf, len(bb.Buf)+1), v)
	return nil
}
