package znp

import "encoding/binary"

// ShortAddress is a 16-bit Zigbee network address.
type ShortAddress uint16

// IEEEAddress is a 64-bit Zigbee/IEEE MAC address.
type IEEEAddress uint64

// The handful of fixed-width readers below are the only payload
// decoding this package needs internally (status bytes, RPC_Error
// correlation, and the documented event/response shapes in spec.md
// §6). General ZCL/ZNP payload encoding is explicitly out of scope
// per spec.md §1; this is not an attempt at one, just the minimal
// little-endian glue the in-scope pieces require.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *byteReader) require(n int) error {
	if r.remaining() < n {
		return newDecodeError("need %d more bytes, have %d", n, r.remaining())
	}
	return nil
}

func (r *byteReader) readUint8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) readUint16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) readUint32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readUint64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) readShortAddress() (ShortAddress, error) {
	v, err := r.readUint16()
	return ShortAddress(v), err
}

func (r *byteReader) readIEEEAddress() (IEEEAddress, error) {
	v, err := r.readUint64()
	return IEEEAddress(v), err
}

// readRemaining consumes and returns every byte left in the reader.
func (r *byteReader) readRemaining() []byte {
	rest := r.data[r.pos:]
	r.pos = len(r.data)
	return rest
}

// finish fails with a DecodeError if allowPartial is false and bytes
// remain undecoded; spec.md §4.4's allow_partial flag.
func (r *byteReader) finish(allowPartial bool) error {
	if !allowPartial && r.remaining() != 0 {
		return newDecodeError("trailing %d unexpected bytes", r.remaining())
	}
	return nil
}

func putUint16(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf, v)
}

func putUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

func putUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

func encodeShortAddress(addr ShortAddress) []byte {
	buf := make([]byte, 2)
	putUint16(buf, uint16(addr))
	return buf
}

func encodeIEEEAddress(addr IEEEAddress) []byte {
	buf := make([]byte, 8)
	putUint64(buf, uint64(addr))
	return buf
}
