// Package writer implements the four exporter writers: plain-text,
// HTML, CSV and metadata. Each is a stateful leaf stage that folds the
// event stream between a Document and its CloseDocument into a buffer,
// then emits exactly one data_source message carrying the accumulated
// bytes. Nested documents only bump a depth counter; the outermost
// close triggers emission.
package writer

import (
	"bytes"

	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/message"
)

// emitBuffer wraps buf as a data_source message with the given file
// extension, the shared tail of every writer's Process method.
func emitBuffer(buf []byte, ext string) message.Message {
	ds := datasource.FromBuffer(bytes.Clone(buf))
	ds.SetFileExtension(ext)
	return message.FromDataSource(ds)
}
