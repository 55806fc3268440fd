package byteutil

import (
	"bytes"
	"sync"
)

var bytesBuffer = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

func GetBytesBuf() (p *bytes.Buffer) {
	ifc := bytesBuffer.Get()
	if ifc != nil {
		p = ifc.(*bytes.Buffer)
	}
	return
}

// PutBytesBuf resets the buffer before returning it to the pool, so
// callers never see stale bytes.
func PutBytesBuf(p *bytes.Buffer) {
	p.Reset()
	bytesBuffer.Put(p)
}
