//go:build !ios && !android && (amd64 || arm64)

package avutil

// Rational represents an exact fraction as used by FFmpeg (AVRational).
type Rational struct {
	Num int32 // Numerator
	Den int32 // Denominator
}

// NewRational creates a new Rational with the given numerator and denominator.
func NewRational(num, den int32) Rational {
	return Rational{Num: num, Den: den}
}

// Float64 converts the rational to a float64.
// Returns 0 if the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns the inverted rational (den/num).
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// IsZero returns true if the rational is zero.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// IsValid returns true if the rational has a non-zero denominator.
func (r Rational) IsValid() bool {
	return r.Den != 0
}

// Rational arithmetic is implemented in pure Go: FFmpeg's av_mul_q and
// friends return AVRational by value, which purego cannot do on most
// platforms.

// Mul multiplies two rationals.
func (r Rational) Mul(other Rational) Rational {
	return Rational{
		Num: r.Num * other.Num,
		Den: r.Den * other.Den,
	}.Reduce()
}

// Div divides two rationals.
func (r Rational) Div(other Rational) Rational {
	return r.Mul(other.Invert())
}

// Add adds two rationals.
func (r Rational) Add(other Rational) Rational {
	return Rational{
		Num: r.Num*other.Den + other.Num*r.Den,
		Den: r.Den * other.Den,
	}.Reduce()
}

// Sub subtracts two rationals.
func (r Rational) Sub(other Rational) Rational {
	return Rational{
		Num: r.Num*other.Den - other.Num*r.Den,
		Den: r.Den * other.Den,
	}.Reduce()
}

// Cmp compares two rationals.
// Returns -1 if r < other, 0 if r == other, 1 if r > other.
func (r Rational) Cmp(other Rational) int {
	left := int64(r.Num) * int64(other.Den)
	right := int64(other.Num) * int64(r.Den)

	if left < right {
		return -1
	}
	if left > right {
		return 1
	}
	return 0
}

// Reduce reduces the rational to lowest terms.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	g := gcd(abs(r.Num), abs(r.Den))
	if g == 0 {
		return r
	}
	return Rational{Num: r.Num / g, Den: r.Den / g}
}

func gcd(a, b int32) int32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// Common frame rates
var (
	FrameRate24    = NewRational(24, 1)
	FrameRate25    = NewRational(25, 1)
	FrameRate30    = NewRational(30, 1)
	FrameRate2997  = NewRational(30000, 1001) // 29.97 fps (NTSC)
	FrameRate50    = NewRational(50, 1)
	FrameRate60    = NewRational(60, 1)
	FrameRate5994  = NewRational(60000, 1001) // 59.94 fps
	FrameRate23976 = NewRational(24000, 1001) // 23.976 fps (film)
)
