package diffql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitsetSetGetClear(t *testing.T) {
	b := NewBitset(10)
	assert.Equal(t, 0, b.Count())

	b.Set(3)
	b.Set(9)
	assert.True(t, b.Get(3))
	assert.True(t, b.Get(9))
	assert.False(t, b.Get(4))
	assert.Equal(t, 2, b.Count())

	b.Clear(3)
	assert.False(t, b.Get(3))
	assert.Equal(t, 1, b.Count())
}

func TestFullBitsetClearsTrailingBits(t *testing.T) {
	// 70 is not a multiple of 64, exercising the trailing-bit mask.
	b := FullBitset(70)
	assert.Equal(t, 70, b.Count())
	for i := 0; i < 70; i++ {
		assert.True(t, b.Get(i), "bit %d", i)
	}
}

func TestBitsetAndOrNot(t *testing.T) {
	a := NewBitset(8)
	a.Set(0)
	a.Set(1)
	a.Set(2)

	b := NewBitset(8)
	b.Set(1)
	b.Set(2)
	b.Set(3)

	and := a.And(b)
	assert.Equal(t, 2, and.Count())
	assert.True(t, and.Get(1))
	assert.True(t, and.Get(2))
	assert.False(t, and.Get(0))

	or := a.Or(b)
	assert.Equal(t, 4, or.Count())

	not := a.Not()
	assert.Equal(t, 8-3, not.Count())
	assert.False(t, not.Get(0))
	assert.True(t, not.Get(3))
}

func TestBitsetSpanningMultipleWords(t *testing.T) {
	n := 200
	b := NewBitset(n)
	for i := 0; i < n; i += 7 {
		b.Set(i)
	}
	count := 0
	for i := 0; i < n; i++ {
		if i%7 == 0 {
			assert.True(t, b.Get(i))
			count++
		} else {
			assert.False(t, b.Get(i))
		}
	}
	assert.Equal(t, count, b.Count())
}
