package crash

import (
	"math/big"
	"strconv"

	"github.com/radieske/game-provider-platform/internal/games/fairness"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

const (
	instantBustModulus = 101
	minHundredths      = 100
	maxHundredths      = 100_000_000
)

var two52 = new(big.Int).Lsh(big.NewInt(1), 52)

// Point is a crash multiplier in hundredths (121 means 1.21x).
type Point struct {
	Hundredths  int64 `json:"hundredths"`
	InstantBust bool  `json:"instantBust"`
}

// Multiplier renders the point as a fixed point amount.
func (p Point) Multiplier() money.Amount {
	return money.MustParse(strconv.FormatInt(p.Hundredths, 10)).Mul(money.MustParse("0.01"))
}

// ComputePoint derives the crash point from HMAC(serverSeed, "clientSeed:nonce").
// One draw in 101 busts at 1.00x.
func ComputePoint(serverSeed, clientSeed string, nonce int64) Point {
	r := fairness.Uint52(serverSeed, clientSeed+":"+strconv.FormatInt(nonce, 10))
	if r%instantBustModulus == 0 {
		return Point{Hundredths: minHundredths, InstantBust: true}
	}

	rb := new(big.Int).SetUint64(r)
	num := new(big.Int).Mul(big.NewInt(100), two52)
	num.Sub(num, rb)
	den := new(big.Int).Sub(two52, rb)
	h := new(big.Int).Quo(num, den).Int64()

	if h < minHundredths {
		h = minHundredths
	}
	if h > maxHundredths {
		h = maxHundredths
	}
	return Point{Hundredths: h}
}
