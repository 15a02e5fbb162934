package batch

import (
	"encoding/binary"
	"testing"
)

func TestEnsureCapacityGrowsExactlyAndKeepsEntries(t *testing.T) {
	var b MultiDrawBatch
	b.EnsureCapacity(2)
	b.Append(DrawParams{Count: 3}, 0, 4)
	b.Append(DrawParams{Count: 3}, 10, 2)

	b.EnsureCapacity(5)
	if b.Capacity() != 5 {
		t.Errorf("Capacity: expected exact fit of 5, got %d", b.Capacity())
	}
	if b.Count != 2 || b.Entry(1).BaseInstance != 10 {
		t.Errorf("EnsureCapacity: expected entries to survive growth, got %+v", b.Entry(1))
	}

	b.EnsureCapacity(3)
	if b.Capacity() != 5 {
		t.Errorf("EnsureCapacity: expected capacity to never shrink, got %d", b.Capacity())
	}
}

func TestAppendMergeRule(t *testing.T) {
	var b MultiDrawBatch
	b.EnsureCapacity(8)

	b.Append(DrawParams{Count: 36}, 0, 10)
	b.Append(DrawParams{Count: 36}, 10, 5) // contiguous, merged
	b.Append(DrawParams{Count: 12}, 15, 5) // different count
	b.Append(DrawParams{Count: 12}, 30, 1) // gap
	b.Break()
	b.Append(DrawParams{Count: 12}, 31, 1) // run closed

	want := []Entry{
		{Count: 36, InstanceCount: 15, BaseInstance: 0},
		{Count: 12, InstanceCount: 5, BaseInstance: 15},
		{Count: 12, InstanceCount: 1, BaseInstance: 30},
		{Count: 12, InstanceCount: 1, BaseInstance: 31},
	}
	if b.Count != len(want) {
		t.Fatalf("Count: expected %d, got %d", len(want), b.Count)
	}
	for i := range want {
		if got := b.Entry(i); got != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got)
		}
	}
	if b.Instances() != 22 {
		t.Errorf("Instances: expected 22, got %d", b.Instances())
	}

	b.Reset()
	b.Append(DrawParams{Count: 12}, 32, 1)
	if b.Count != 1 {
		t.Errorf("Reset: expected the first append to start a new entry, got Count %d", b.Count)
	}
}

func TestSetUniformReplacesByName(t *testing.T) {
	var b MultiDrawBatch
	b.SetUniform("uLod", [4]float32{1, 2, 3, 4})
	b.SetUniform("uTint", [4]float32{1, 1, 1, 1})
	b.SetUniform("uLod", [4]float32{5, 6, 7, 8})
	if len(b.Uniforms) != 2 || b.Uniforms[0].Value != [4]float32{5, 6, 7, 8} {
		t.Errorf("SetUniform: expected uLod replaced in place, got %v", b.Uniforms)
	}
}

func TestPackIndirectLayout(t *testing.T) {
	var b MultiDrawBatch
	b.EnsureCapacity(2)
	b.Append(DrawParams{First: 3, Count: 36, BaseVertex: -1}, 0, 10)
	b.Append(DrawParams{First: 3, Count: 12, BaseVertex: -1}, 20, 4)

	buf := b.PackIndirect(nil)
	if len(buf) != 40 {
		t.Fatalf("PackIndirect: expected 40 bytes, got %d", len(buf))
	}
	words := make([]uint32, 10)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	want := []uint32{36, 10, 3, 0xffffffff, 0, 12, 4, 3, 0xffffffff, 20}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d: expected %d, got %d", i, want[i], words[i])
		}
	}

	b.Reset()
	b.Append(DrawParams{Count: 6}, 0, 1)
	reused := b.PackIndirect(buf)
	if len(reused) != 20 || &reused[0] != &buf[0] {
		t.Errorf("PackIndirect: expected the staging slice to be reused")
	}
}

func TestGPUTypeSizes(t *testing.T) {
	var args GPUDrawIndexedIndirectArgs
	if args.Size() != 20 || len(args.Marshal()) != 20 {
		t.Errorf("GPUDrawIndexedIndirectArgs: expected 20 bytes, got %d", args.Size())
	}
	params := NewGPULodParams([4]float32{1, 2, 3, 4})
	if params.Size() != 16 || len(params.Marshal()) != 16 {
		t.Errorf("GPULodParams: expected 16 bytes, got %d", params.Size())
	}
	if params.SizeFactor != 4 {
		t.Errorf("NewGPULodParams: expected size factor 4, got %v", params.SizeFactor)
	}
}
