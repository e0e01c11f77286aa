package export

// bufferPacker accumulates the export's single binary payload. Chunks are
// packed back to back with no alignment padding; callers express alignment
// through accessor offsets and view strides instead.
type bufferPacker struct {
	data []byte
}

// Append writes b to the end of the store and returns the byte offset at
// which the write began.
func (p *bufferPacker) Append(b []byte) int {
	offset := len(p.data)
	p.data = append(p.data, b...)
	return offset
}

// Len returns the total number of bytes packed so far.
func (p *bufferPacker) Len() int {
	return len(p.data)
}

// Bytes returns the packed payload.
func (p *bufferPacker) Bytes() []byte {
	return p.data
}
