package compare

// Package compare applies per-record tolerance rules to structured
// results. A record's computed value is a scalar, an ordered sequence of
// scalars, or an ordered sequence of fixed-size tuples; the tolerance is
// a scalar, a per-index sequence, or a tuple shared across all indices.
// Comparison is fail-fast: the first record outside tolerance aborts.

import (
	"fmt"
	"math"
	"reflect"

	"github.com/solverify/solverify/model"
)

// AssertionError identifies the first result record that failed
// comparison.
type AssertionError struct {
	Index  int
	Label  string
	Detail string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("result %d (%s): %s", e.Index, e.Label, e.Detail)
}

// Records compares every record in order and returns an AssertionError
// for the first one outside tolerance. Given the same records it always
// yields the same outcome.
func Records(records []model.ResultRecord) error {
	for i, r := range records {
		if err := record(r); err != nil {
			return &AssertionError{Index: i, Label: r.Label(), Detail: err.Error()}
		}
	}
	return nil
}

func record(r model.ResultRecord) error {
	if seq, ok := asList(r.ComputedValue); ok {
		return compareSequence(r, seq)
	}
	return compareScalar(r)
}

func compareSequence(r model.ResultRecord, computed []interface{}) error {
	reference, ok := asList(r.ReferenceValue)
	if !ok {
		return fmt.Errorf("computed value is a sequence but reference value is not")
	}
	if len(reference) != len(computed) {
		return fmt.Errorf("computed value has %d entries, reference value has %d", len(computed), len(reference))
	}
	for i := range computed {
		if refTuple, ok := asList(reference[i]); ok {
			if err := compareTuple(r, computed, reference, refTuple, i); err != nil {
				return err
			}
			continue
		}
		tol, err := toleranceAt(r.Tolerance, i)
		if err != nil {
			return err
		}
		if err := within(computed[i], reference[i], tol); err != nil {
			return fmt.Errorf("index %d: %v", i, err)
		}
	}
	return nil
}

// compareTuple compares the fixed-size tuple at index i. The tolerance is
// either one tuple shared by every index or a distinct tuple per index.
func compareTuple(r model.ResultRecord, computed, reference []interface{}, refTuple []interface{}, i int) error {
	compTuple, ok := asList(computed[i])
	if !ok {
		return fmt.Errorf("index %d: reference value is a tuple but computed value is not", i)
	}
	if len(compTuple) != len(refTuple) {
		return fmt.Errorf("index %d: computed tuple has %d components, reference has %d", i, len(compTuple), len(refTuple))
	}
	tolTuple, err := toleranceTupleAt(r.Tolerance, i)
	if err != nil {
		return fmt.Errorf("index %d: %v", i, err)
	}
	if len(tolTuple) != len(refTuple) {
		return fmt.Errorf("index %d: tolerance tuple has %d components, reference has %d", i, len(tolTuple), len(refTuple))
	}
	for j := range refTuple {
		if err := within(compTuple[j], refTuple[j], tolTuple[j]); err != nil {
			return fmt.Errorf("index %d component %d: %v", i, j, err)
		}
	}
	return nil
}

func compareScalar(r model.ResultRecord) error {
	switch {
	case r.Tolerance != nil:
		return within(r.ComputedValue, r.ReferenceValue, r.Tolerance)
	case r.ReferenceValue != nil:
		return equal(r.ComputedValue, r.ReferenceValue)
	default:
		// No expectation to compare against; vacuously satisfied.
		return nil
	}
}

// toleranceAt resolves the tolerance for a scalar element at index i:
// per-index when the tolerance is a sequence, shared when it is a scalar.
func toleranceAt(tol interface{}, i int) (interface{}, error) {
	if tol == nil {
		return nil, fmt.Errorf("index %d: no tolerance for sequence comparison", i)
	}
	if seq, ok := asList(tol); ok {
		if i >= len(seq) {
			return nil, fmt.Errorf("index %d: tolerance sequence has only %d entries", i, len(seq))
		}
		return seq[i], nil
	}
	return tol, nil
}

// toleranceTupleAt resolves the tolerance tuple for a tuple-shaped
// element: a flat sequence of scalars is one tuple shared across indices,
// a sequence of sequences is indexed per element.
func toleranceTupleAt(tol interface{}, i int) ([]interface{}, error) {
	seq, ok := asList(tol)
	if !ok {
		return nil, fmt.Errorf("tolerance must be a tuple or a sequence of tuples")
	}
	if len(seq) > 0 {
		if _, nested := asList(seq[0]); !nested {
			return seq, nil
		}
	}
	if i >= len(seq) {
		return nil, fmt.Errorf("tolerance sequence has only %d entries", len(seq))
	}
	tuple, ok := asList(seq[i])
	if !ok {
		return nil, fmt.Errorf("tolerance entry is not a tuple")
	}
	return tuple, nil
}

// within checks |computed - reference| <= tolerance.
func within(computed, reference, tolerance interface{}) error {
	cv, ok := asFloat(computed)
	if !ok {
		return fmt.Errorf("computed value %v is not numeric", computed)
	}
	rv, ok := asFloat(reference)
	if !ok {
		return fmt.Errorf("reference value %v is not numeric", reference)
	}
	tv, ok := asFloat(tolerance)
	if !ok {
		return fmt.Errorf("tolerance %v is not numeric", tolerance)
	}
	if diff := math.Abs(cv - rv); diff > tv {
		return fmt.Errorf("computed %v differs from reference %v by %v (tolerance %v)", cv, rv, diff, tv)
	}
	return nil
}

func equal(computed, reference interface{}) error {
	cv, cok := asFloat(computed)
	rv, rok := asFloat(reference)
	if cok && rok {
		if cv != rv {
			return fmt.Errorf("computed %v != reference %v", cv, rv)
		}
		return nil
	}
	if !reflect.DeepEqual(computed, reference) {
		return fmt.Errorf("computed %v != reference %v", computed, reference)
	}
	return nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asList(v interface{}) ([]interface{}, bool) {
	seq, ok := v.([]interface{})
	return seq, ok
}
