package fomo

import (
	"math/bits"
	"strconv"
)

// Rand — источник псевдослучайных чисел в [0, 1).
type Rand interface {
	Float64() float64
}

const warmupDraws = 12

// hash32 перемешивает строку в 32-битное значение.
// Криптостойкость не требуется: важна только воспроизводимость и равномерный разброс.
func hash32(s string) uint32 {
	h := uint32(1779033703) ^ uint32(len(s))
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 3432918353
		h = bits.RotateLeft32(h, 13)
	}
	h = (h ^ (h >> 16)) * 2246822507
	h = (h ^ (h >> 13)) * 3266489909
	return h ^ (h >> 16)
}

// seeds строит четыре 32-битных зерна из ключа, варьируя суффикс.
func seeds(key string) [4]uint32 {
	var out [4]uint32
	for i := range out {
		out[i] = hash32(key + "#" + strconv.Itoa(i))
	}
	return out
}

// sfc32 — четырёхсловный генератор с аддитивной обратной связью.
type sfc32 struct {
	a, b, c, d uint32
}

func newSFC32(s [4]uint32) *sfc32 {
	g := &sfc32{a: s[0], b: s[1], c: s[2], d: s[3]}
	for i := 0; i < warmupDraws; i++ {
		g.next()
	}
	return g
}

func (g *sfc32) next() uint32 {
	t := g.a + g.b
	g.a = g.b ^ (g.b >> 9)
	g.b = g.c + (g.c << 3)
	g.c = bits.RotateLeft32(g.c, 21)
	g.d++
	t += g.d
	g.c += t
	return t
}

// Float64 возвращает следующее значение последовательности в [0, 1).
func (g *sfc32) Float64() float64 {
	return float64(g.next()) / 4294967296.0
}

// NewRand возвращает генератор, детерминированно зависящий только от key.
func NewRand(key string) Rand {
	return newSFC32(seeds(key))
}

// intn возвращает floor(r * n).
func intn(r Rand, n int) int {
	if n <= 0 {
		return 0
	}
	v := int(r.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}
