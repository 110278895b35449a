// Package valuecodec is a reference ValueCodec built on pgx's type map: it
// converts the binary-format column bytes a Stream hands back into Go
// values, and Go values into the wire Parameters a query binds. It is
// entirely optional — callers that want raw bytes can use client.Row
// directly — but covers the common scalar types plus NUMERIC, which pgx's
// own pgtype.Numeric cannot round-trip through database/sql without an
// intermediate that preserves arbitrary precision.
package valuecodec

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/psql-wire/client/message"
	"github.com/shopspring/decimal"
)

// Codec decodes and encodes column values using pgx's OID-keyed type
// registry. The zero value is not usable; construct with New.
type Codec struct {
	types *pgtype.Map
}

// New constructs a Codec backed by pgx's default type registry.
func New() *Codec {
	return &Codec{types: pgtype.NewMap()}
}

// Decode converts the raw binary-format bytes of a column with the given
// OID into dst, which must be a pointer to a Go type pgx's registry knows
// how to scan into (e.g. *int32, *string, *time.Time, *[]byte).
func (c *Codec) Decode(oid uint32, raw []byte, dst any) error {
	if err := c.types.Scan(oid, pgtype.BinaryFormatCode, raw, dst); err != nil {
		return fmt.Errorf("decode column (oid %d): %w", oid, err)
	}

	return nil
}

// DecodeNumeric decodes a NUMERIC column into a decimal.Decimal, which
// (unlike float64) preserves the exact digits and scale PostgreSQL sent.
func (c *Codec) DecodeNumeric(raw []byte) (decimal.Decimal, error) {
	var num pgtype.Numeric
	if err := c.types.Scan(pgtype.NumericOID, pgtype.BinaryFormatCode, raw, &num); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode numeric: %w", err)
	}

	if !num.Valid {
		return decimal.Decimal{}, nil
	}

	if num.NaN {
		return decimal.Decimal{}, fmt.Errorf("decode numeric: NaN has no decimal.Decimal representation")
	}

	return decimal.NewFromBigInt(num.Int, num.Exp), nil
}

// Encode converts a Go value into a wire Parameter bound in binary format
// for the column/placeholder type identified by oid.
func (c *Codec) Encode(oid uint32, value any) (message.Parameter, error) {
	if value == nil {
		return message.Parameter{Format: message.BinaryFormat, Value: nil}, nil
	}

	buf, err := c.types.Encode(oid, pgtype.BinaryFormatCode, value, nil)
	if err != nil {
		return message.Parameter{}, fmt.Errorf("encode parameter (oid %d): %w", oid, err)
	}

	return message.Parameter{Format: message.BinaryFormat, Value: buf}, nil
}

// EncodeNumeric converts a decimal.Decimal into a NUMERIC wire Parameter,
// preserving its exact digits and scale.
func (c *Codec) EncodeNumeric(d decimal.Decimal) (message.Parameter, error) {
	num := pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}

	buf, err := c.types.Encode(pgtype.NumericOID, pgtype.BinaryFormatCode, num, nil)
	if err != nil {
		return message.Parameter{}, fmt.Errorf("encode numeric: %w", err)
	}

	return message.Parameter{Format: message.BinaryFormat, Value: buf}, nil
}
