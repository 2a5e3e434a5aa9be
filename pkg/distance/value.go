// Package distance defines the numeric contract for distance values and a
// set of concrete metrics over vectors, integers, and byte strings.
//
// Every search and tree-building algorithm in this module is generic over a
// Value: any integer or floating-point type works, and algorithms only rely
// on the operations exposed here. Distances must be non-negative and must
// satisfy the triangle inequality for the tree's pruning bounds to be
// correct.
package distance

import (
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Value is the constraint for distance values: totally ordered, copyable
// numbers with additive and multiplicative identities, bounded, and lossily
// convertible to and from float64.
type Value interface {
	constraints.Integer | constraints.Float
}

// Zero returns the additive identity for U.
func Zero[U Value]() U {
	var z U
	return z
}

// One returns the multiplicative identity for U.
func One[U Value]() U {
	return U(1)
}

// Half returns x divided by one plus one.
//
// For integer types this truncates, so Half(1) == 0; the tree's LFD
// estimator depends on that behavior for unit radii.
func Half[U Value](x U) U {
	return x / (One[U]() + One[U]())
}

// IsNaN reports whether v is a floating-point NaN. Integer values are never
// NaN.
func IsNaN[U Value](v U) bool {
	return v != v
}

// ToFloat64 converts a distance value to float64, losing precision for
// large integers.
func ToFloat64[U Value](v U) float64 {
	return float64(v)
}

// ErrConversion is returned by FromFloat64 for values that have no
// representation in the target type.
var ErrConversion = fmt.Errorf("distance value conversion failed")

// FromFloat64 converts a float64 to a distance value. It fails on NaN and on
// values that cannot be represented in U without leaving its bounds.
func FromFloat64[U Value](f float64) (U, error) {
	var z U
	if math.IsNaN(f) {
		return z, fmt.Errorf("cannot convert NaN to %T: %w", z, ErrConversion)
	}
	if f < ToFloat64(MinOf[U]()) || f > ToFloat64(MaxOf[U]()) {
		return z, fmt.Errorf("%v out of range for %T: %w", f, z, ErrConversion)
	}
	return U(f), nil
}

// MaxOf returns the largest representable value of U.
func MaxOf[U Value]() U {
	var z U
	switch reflect.TypeOf(z).Kind() {
	case reflect.Float32:
		v := float32(math.MaxFloat32)
		return U(v)
	case reflect.Float64:
		v := float64(math.MaxFloat64)
		return U(v)
	case reflect.Int:
		v := int(math.MaxInt)
		return U(v)
	case reflect.Int8:
		v := int8(math.MaxInt8)
		return U(v)
	case reflect.Int16:
		v := int16(math.MaxInt16)
		return U(v)
	case reflect.Int32:
		v := int32(math.MaxInt32)
		return U(v)
	case reflect.Int64:
		v := int64(math.MaxInt64)
		return U(v)
	case reflect.Uint8:
		v := uint8(math.MaxUint8)
		return U(v)
	case reflect.Uint16:
		v := uint16(math.MaxUint16)
		return U(v)
	case reflect.Uint32:
		v := uint32(math.MaxUint32)
		return U(v)
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v := uint64(math.MaxUint64)
		return U(v)
	default:
		panic(fmt.Sprintf("unsupported distance value kind %T", z))
	}
}

// MinOf returns the smallest representable value of U.
func MinOf[U Value]() U {
	var z U
	switch reflect.TypeOf(z).Kind() {
	case reflect.Float32:
		v := float32(-math.MaxFloat32)
		return U(v)
	case reflect.Float64:
		v := float64(-math.MaxFloat64)
		return U(v)
	case reflect.Int:
		v := int(math.MinInt)
		return U(v)
	case reflect.Int8:
		v := int8(math.MinInt8)
		return U(v)
	case reflect.Int16:
		v := int16(math.MinInt16)
		return U(v)
	case reflect.Int32:
		v := int32(math.MinInt32)
		return U(v)
	case reflect.Int64:
		v := int64(math.MinInt64)
		return U(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return z
	default:
		panic(fmt.Sprintf("unsupported distance value kind %T", z))
	}
}
