// Package numeric implements talc's integer model: a 64-bit fast path that
// transparently promotes to math/big on overflow and collapses back down
// whenever a result fits again.
package numeric

import (
	"hash/fnv"
	"math"
	"math/big"
	"strconv"

	"github.com/pontaoski/talc/errors"
)

const (
	cacheLow  = -128
	cacheHigh = 127

	// maxDistance bounds shift distances and exponents. Anything larger
	// would only ever exhaust memory.
	maxDistance = math.MaxInt32
)

// Integer is an immutable integer value. If bignum is nil the value is
// fixnum; otherwise it's bignum and fixnum is ignored. Every constructor
// canonicalizes, so a bignum never holds a value that fits in an int64.
type Integer struct {
	fixnum int64
	bignum *big.Int
}

var cache = makeCache()

var (
	Zero     = New(0)
	One      = New(1)
	MinusOne = New(-1)
)

func makeCache() []*Integer {
	c := make([]*Integer, cacheHigh-cacheLow+1)
	for i := range c {
		c[i] = &Integer{fixnum: int64(i + cacheLow)}
	}
	return c
}

// New returns the Integer for l. Values in [-128, 127] are shared.
func New(l int64) *Integer {
	if l >= cacheLow && l <= cacheHigh {
		return cache[l-cacheLow]
	}
	return &Integer{fixnum: l}
}

// FromBig returns the canonical Integer for b. b is not retained.
func FromBig(b *big.Int) *Integer {
	return fromBig(new(big.Int).Set(b))
}

func fromBig(b *big.Int) *Integer {
	if b.IsInt64() {
		return New(b.Int64())
	}
	return &Integer{bignum: b}
}

// Parse reads digits in the given base, falling back to arbitrary
// precision when the fast parse fails.
func Parse(digits string, base int) (*Integer, error) {
	if l, err := strconv.ParseInt(digits, base, 64); err == nil {
		return New(l), nil
	}
	b, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, errors.NewArgumentError("can't parse \"%s\" as a base %d integer", digits, base)
	}
	return fromBig(b), nil
}

func MustParse(digits string, base int) *Integer {
	i, err := Parse(digits, base)
	if err != nil {
		panic(err)
	}
	return i
}

// IsBig reports whether the value is held in arbitrary precision.
func (a *Integer) IsBig() bool {
	return a.bignum != nil
}

// big returns the value as a fresh big.Int the caller may mutate.
func (a *Integer) big() *big.Int {
	if a.bignum != nil {
		return new(big.Int).Set(a.bignum)
	}
	return big.NewInt(a.fixnum)
}

func (a *Integer) Big() *big.Int {
	return a.big()
}

// Int64 returns the value and whether it fits in an int64.
func (a *Integer) Int64() (int64, bool) {
	if a.IsBig() {
		return 0, false
	}
	return a.fixnum, true
}

func (a *Integer) Add(b *Integer) *Integer {
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().Add(a.big(), b.big()))
	}
	x, y := a.fixnum, b.fixnum
	c := x + y
	if (c^x) < 0 && (c^y) < 0 {
		return fromBig(a.big().Add(a.big(), b.big()))
	}
	return New(c)
}

func (a *Integer) Sub(b *Integer) *Integer {
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().Sub(a.big(), b.big()))
	}
	x, y := a.fixnum, b.fixnum
	c := x - y
	if (c^x) < 0 && (c^^y) < 0 {
		return fromBig(a.big().Sub(a.big(), b.big()))
	}
	return New(c)
}

func (a *Integer) Mul(b *Integer) *Integer {
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().Mul(a.big(), b.big()))
	}
	x, y := a.fixnum, b.fixnum
	c := x * y
	// -1 * MinInt64 wraps to MinInt64, and MinInt64 / -1 wraps too, so the
	// division test alone can't see it.
	if (x != 0 && c/x != y) || (x == -1 && y == math.MinInt64) {
		return fromBig(a.big().Mul(a.big(), b.big()))
	}
	return New(c)
}

// Div truncates toward zero.
func (a *Integer) Div(b *Integer) (*Integer, error) {
	if b.Signum() == 0 {
		return nil, errors.NewArgumentError("division by zero")
	}
	if a.IsBig() || b.IsBig() || (a.fixnum == math.MinInt64 && b.fixnum == -1) {
		return fromBig(a.big().Quo(a.big(), b.big())), nil
	}
	return New(a.fixnum / b.fixnum), nil
}

// Mod is the remainder of truncated division, so it takes the sign of a.
func (a *Integer) Mod(b *Integer) (*Integer, error) {
	if b.Signum() == 0 {
		return nil, errors.NewArgumentError("division by zero")
	}
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().Rem(a.big(), b.big())), nil
	}
	return New(a.fixnum % b.fixnum), nil
}

func distance(b *Integer, what string) (int64, error) {
	if b.IsBig() || b.fixnum > maxDistance || b.fixnum < -maxDistance {
		return 0, errors.NewArgumentError("%s %s is too large", what, b)
	}
	return b.fixnum, nil
}

// Shl shifts left. A negative distance shifts right.
func (a *Integer) Shl(b *Integer) (*Integer, error) {
	n, err := distance(b, "shift distance")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return a.Shr(New(-n))
	}
	if !a.IsBig() && n < 63 {
		c := a.fixnum << uint(n)
		if c>>uint(n) == a.fixnum {
			return New(c), nil
		}
	}
	return fromBig(a.big().Lsh(a.big(), uint(n))), nil
}

// Shr is an arithmetic shift right. A negative distance shifts left.
func (a *Integer) Shr(b *Integer) (*Integer, error) {
	n, err := distance(b, "shift distance")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return a.Shl(New(-n))
	}
	if !a.IsBig() {
		return New(a.fixnum >> uint(n)), nil
	}
	return fromBig(a.big().Rsh(a.big(), uint(n))), nil
}

// Pow always goes through math/big.
func (a *Integer) Pow(b *Integer) (*Integer, error) {
	n, err := distance(b, "exponent")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.NewArgumentError("negative exponent %d", n)
	}
	return fromBig(new(big.Int).Exp(a.big(), big.NewInt(n), nil)), nil
}

func (a *Integer) And(b *Integer) *Integer {
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().And(a.big(), b.big()))
	}
	return New(a.fixnum & b.fixnum)
}

func (a *Integer) Or(b *Integer) *Integer {
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().Or(a.big(), b.big()))
	}
	return New(a.fixnum | b.fixnum)
}

func (a *Integer) Xor(b *Integer) *Integer {
	if a.IsBig() || b.IsBig() {
		return fromBig(a.big().Xor(a.big(), b.big()))
	}
	return New(a.fixnum ^ b.fixnum)
}

func (a *Integer) Not() *Integer {
	if a.IsBig() {
		return fromBig(a.big().Not(a.bignum))
	}
	return New(^a.fixnum)
}

func (a *Integer) Neg() *Integer {
	if a.IsBig() || a.fixnum == math.MinInt64 {
		return fromBig(a.big().Neg(a.big()))
	}
	return New(-a.fixnum)
}

func (a *Integer) Abs() *Integer {
	if a.Signum() < 0 {
		return a.Neg()
	}
	return a
}

func (a *Integer) Inc() *Integer {
	if a.IsBig() || a.fixnum == math.MaxInt64 {
		return fromBig(a.big().Add(a.big(), big.NewInt(1)))
	}
	return New(a.fixnum + 1)
}

func (a *Integer) Dec() *Integer {
	if a.IsBig() || a.fixnum == math.MinInt64 {
		return fromBig(a.big().Sub(a.big(), big.NewInt(1)))
	}
	return New(a.fixnum - 1)
}

func (a *Integer) Signum() int {
	if a.IsBig() {
		return a.bignum.Sign()
	}
	switch {
	case a.fixnum < 0:
		return -1
	case a.fixnum > 0:
		return 1
	}
	return 0
}

func (a *Integer) Factorial() (*Integer, error) {
	if a.Signum() < 0 {
		return nil, errors.NewArgumentError("factorial requires a non-negative integer argument; got %s instead", a)
	}
	n := a.big()
	result := big.NewInt(1)
	for i := big.NewInt(2); i.Cmp(n) <= 0; i.Add(i, big.NewInt(1)) {
		result.Mul(result, i)
	}
	return fromBig(result), nil
}

// Cmp returns -1, 0 or 1. Either operand in big form puts both there.
func (a *Integer) Cmp(b *Integer) int {
	if a.IsBig() || b.IsBig() {
		return a.big().Cmp(b.big())
	}
	switch {
	case a.fixnum < b.fixnum:
		return -1
	case a.fixnum > b.fixnum:
		return 1
	}
	return 0
}

func (a *Integer) Equal(b *Integer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Hash is consistent with Equal whichever representation a value is in.
func (a *Integer) Hash() uint64 {
	if a.IsBig() && !a.bignum.IsInt64() {
		h := fnv.New64a()
		h.Write([]byte{byte(a.bignum.Sign() + 1)})
		h.Write(a.bignum.Bytes())
		return h.Sum64()
	}
	f := a.fixnum
	if a.IsBig() {
		f = a.bignum.Int64()
	}
	return uint64(f ^ int64(uint64(f)>>32))
}

// Float64 fails if the value is outside the range of a float64.
func (a *Integer) Float64() (float64, error) {
	if !a.IsBig() {
		return float64(a.fixnum), nil
	}
	f, _ := new(big.Float).SetInt(a.bignum).Float64()
	if math.IsInf(f, 0) {
		return 0, errors.NewArgumentError("integer value too large")
	}
	return f, nil
}

func (a *Integer) String() string {
	if a.IsBig() {
		return a.bignum.String()
	}
	return strconv.FormatInt(a.fixnum, 10)
}

func (a *Integer) ToBase(base *Integer) (string, error) {
	b, ok := base.Int64()
	if !ok || b < 2 || b > 36 {
		return "", errors.NewArgumentError("base %s out of range", base)
	}
	if a.IsBig() {
		return a.bignum.Text(int(b)), nil
	}
	return strconv.FormatInt(a.fixnum, int(b)), nil
}

// ToChar returns the character with this code point.
func (a *Integer) ToChar() string {
	l, ok := a.Int64()
	if !ok || l < 0 || l > math.MaxInt32 {
		return string(rune(0xFFFD))
	}
	return string(rune(l))
}
