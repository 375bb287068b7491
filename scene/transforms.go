package scene

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxInstances is the fixed capacity of a TransformBuffer, in matrices.
const MaxInstances = 1024

// FloatsPerMatrix is the number of float32 values in one packed transform.
const FloatsPerMatrix = 16

// MatrixSize is the byte size of one packed transform.
const MatrixSize = FloatsPerMatrix * 4

// TransformBuffer is a fixed-capacity, bounds-checked sequence of model
// matrices. Matrices are stored column-major, matching mat4x4<f32> in WGSL.
//
// The zero value is an empty buffer ready for use.
type TransformBuffer struct {
	mats [MaxInstances]mgl32.Mat4
	n    int
}

// Len returns the number of written matrices.
func (b *TransformBuffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *TransformBuffer) Cap() int { return MaxInstances }

// Reset empties the buffer without releasing storage.
func (b *TransformBuffer) Reset() { b.n = 0 }

// Append writes m after the last written matrix and returns its index.
func (b *TransformBuffer) Append(m mgl32.Mat4) (int, error) {
	if b.n >= MaxInstances {
		return 0, fmt.Errorf("%w: append at %d", ErrCapacityExceeded, b.n)
	}
	b.mats[b.n] = m
	b.n++
	return b.n - 1, nil
}

// Set overwrites the matrix at index i. Writing at Len() extends the buffer
// by one; writing further out is an error.
func (b *TransformBuffer) Set(i int, m mgl32.Mat4) error {
	if i < 0 || i >= MaxInstances {
		return fmt.Errorf("%w: index %d", ErrCapacityExceeded, i)
	}
	if i > b.n {
		return fmt.Errorf("scene: set index %d leaves a gap after %d written matrices", i, b.n)
	}
	b.mats[i] = m
	if i == b.n {
		b.n++
	}
	return nil
}

// At returns the matrix at index i. It panics if i is out of range, like a
// slice index.
func (b *TransformBuffer) At(i int) mgl32.Mat4 {
	if i < 0 || i >= b.n {
		panic(fmt.Sprintf("scene: transform index %d out of range [0,%d)", i, b.n))
	}
	return b.mats[i]
}

// Floats returns a copy of the written matrices as a flat float32 slice,
// 16 values per matrix.
func (b *TransformBuffer) Floats() []float32 {
	out := make([]float32, 0, b.n*FloatsPerMatrix)
	for i := 0; i < b.n; i++ {
		out = append(out, b.mats[i][:]...)
	}
	return out
}

// Bytes returns the written matrices packed as little-endian float32 values,
// ready for upload into a storage buffer.
func (b *TransformBuffer) Bytes() []byte {
	out := make([]byte, b.n*MatrixSize)
	for i := 0; i < b.n; i++ {
		base := i * MatrixSize
		for j, v := range b.mats[i] {
			binary.LittleEndian.PutUint32(out[base+j*4:], math.Float32bits(v))
		}
	}
	return out
}
