package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Write queues every write whose provider holds a buffer at the target binding. Writes against
// an unset binding are skipped and counted.
//
// Parameters:
//   - queue: the device queue
//   - writes: the writes to queue
//
// Returns:
//   - int: the number of skipped writes
func Write(queue *wgpu.Queue, writes ...BufferWrite) int {
	skipped := 0
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			skipped++
			continue
		}
		queue.WriteBuffer(buf, w.Offset, w.Data)
	}
	return skipped
}
