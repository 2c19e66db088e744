package persistence

import (
	"bytes"
	"sync"
)

// maxPooledBuffer caps the buffers kept for reuse; larger dumps are left
// to the GC.
const maxPooledBuffer = 4 << 20

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// getBuffer gets an empty buffer from the pool.
func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns buf to the pool. The caller must not keep buf.Bytes().
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}
