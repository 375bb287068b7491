package scene

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTransformBufferCapacity(t *testing.T) {
	var b TransformBuffer
	for i := 0; i < MaxInstances; i++ {
		if _, err := b.Append(mgl32.Ident4()); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if b.Len() != MaxInstances {
		t.Fatalf("Len = %d, want %d", b.Len(), MaxInstances)
	}

	if _, err := b.Append(mgl32.Ident4()); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Append past capacity = %v, want ErrCapacityExceeded", err)
	}
	if err := b.Set(MaxInstances, mgl32.Ident4()); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Set past capacity = %v, want ErrCapacityExceeded", err)
	}
	if err := b.Set(-1, mgl32.Ident4()); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Set(-1) = %v, want ErrCapacityExceeded", err)
	}
}

func TestTransformBufferSetExtendsByOne(t *testing.T) {
	var b TransformBuffer
	if err := b.Set(0, mgl32.Translate3D(1, 2, 3)); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
	if err := b.Set(2, mgl32.Ident4()); err == nil {
		t.Fatal("Set(2) on a one-element buffer should fail")
	}
	if err := b.Set(0, mgl32.Ident4()); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if b.Len() != 1 {
		t.Errorf("overwrite changed Len to %d", b.Len())
	}
}

func TestTransformBufferBytesLayout(t *testing.T) {
	var b TransformBuffer
	m := mgl32.Translate3D(4, 5, 6)
	if _, err := b.Append(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Append(m); err != nil {
		t.Fatal(err)
	}

	data := b.Bytes()
	if len(data) != 2*MatrixSize {
		t.Fatalf("len(Bytes) = %d, want %d", len(data), 2*MatrixSize)
	}

	// Column-major: translation lives in elements 12..14 of the second matrix.
	readFloat := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	if got := readFloat(FloatsPerMatrix + 12); got != 4 {
		t.Errorf("tx = %v, want 4", got)
	}
	if got := readFloat(FloatsPerMatrix + 14); got != 6 {
		t.Errorf("tz = %v, want 6", got)
	}

	floats := b.Floats()
	if len(floats) != 2*FloatsPerMatrix || floats[FloatsPerMatrix+13] != 5 {
		t.Errorf("Floats = %v", floats)
	}
}

func TestTransformBufferReset(t *testing.T) {
	var b TransformBuffer
	_, _ = b.Append(mgl32.Ident4())
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Len after Reset = %d", b.Len())
	}
	if len(b.Bytes()) != 0 {
		t.Error("Bytes after Reset should be empty")
	}
}
