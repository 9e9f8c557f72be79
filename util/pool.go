package util

import "sync"

// ReadChunkSize is the size of a single transport read.  Protocol lines
// are short; a chunk rarely holds more than a handful of them.
const ReadChunkSize = 4096

// chunkPool recycles read buffers between framer reads so the receive
// loop does not allocate on every iteration.
var chunkPool = sync.Pool{
	New: func() any {
		buf := make([]byte, ReadChunkSize)
		return &buf
	},
}

// GetChunk retrieves a read buffer from the pool.  Callers must return
// it with [PutChunk] when finished.
func GetChunk() *[]byte {
	return chunkPool.Get().(*[]byte)
}

// PutChunk returns a buffer to the pool for reuse.
func PutChunk(buf *[]byte) {
	if buf == nil || len(*buf) != ReadChunkSize {
		return
	}
	chunkPool.Put(buf)
}
