package ledger

import "github.com/shopspring/decimal"

const (
	// MoneyPlaces is the number of fractional digits kept for balances,
	// fees and credited amounts.
	MoneyPlaces = 8
	// RatePlaces is the precision of the stored conversion rate.
	RatePlaces = 12

	MaxNoteLength = 200

	// MaxIntegerDigits bounds the integer part of an amount. Together with
	// MoneyPlaces it keeps amounts inside NUMERIC(38,18).
	MaxIntegerDigits = 20
)

var (
	ConvertFeeRate = decimal.RequireFromString("0.001")
	PaymentFeeRate = decimal.RequireFromString("0.005")

	// StartingGrant is credited to the INR wallet of every new user.
	StartingGrant = decimal.NewFromInt(10000)
)

// RoundMoney rounds half away from zero to MoneyPlaces digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

func ConvertFee(amount decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(ConvertFeeRate))
}

func PaymentFee(amount decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(PaymentFeeRate))
}

// validAmount checks the exponent and digit count before any rescaling, so
// inputs like 1e50000000 are rejected without building huge coefficients.
func validAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	exp := int(amount.Exponent())
	if exp < -maxInputScale || exp > MaxIntegerDigits {
		return false
	}
	if amount.NumDigits()+exp > MaxIntegerDigits {
		return false
	}
	return amount.Equal(RoundMoney(amount))
}

// maxInputScale admits trailing zeros such as "1.500000000000" while
// capping the work done by the rounding check.
const maxInputScale = 18
