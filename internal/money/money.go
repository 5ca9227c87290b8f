// Package money holds prices in major currency units backed by shopspring/decimal.
package money

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

const minorPerMajor = 100

// Amount is a price in major units (e.g. dollars). It marshals as a plain JSON number and a
// DynamoDB N attribute.
type Amount struct {
	decimal.Decimal
}

// New parses a decimal string such as "19.99".
func New(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// MustNew is New for constants and tests.
func MustNew(s string) Amount {
	a, err := New(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromMinor converts gateway minor units (cents) back to major units.
func FromMinor(minor int64) Amount {
	return Amount{decimal.New(minor, -2)}
}

// Minor converts to gateway minor units, rounding half away from zero.
func (a Amount) Minor() int64 {
	return a.Mul(decimal.NewFromInt(minorPerMajor)).Round(0).IntPart()
}

// Equal compares numerically, so 10 and 10.00 are equal.
func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

func (a Amount) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: a.Decimal.String()}, nil
}

func (a *Amount) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return err
		}
		a.Decimal = d
	case *types.AttributeValueMemberS:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return err
		}
		a.Decimal = d
	case *types.AttributeValueMemberNULL:
		a.Decimal = decimal.Zero
	default:
		return fmt.Errorf("unsupported attribute type %T for amount", av)
	}
	return nil
}
