package compare

import (
	"testing"

	"github.com/solverify/solverify/model"
	"github.com/stretchr/testify/require"
)

func TestRecords_Scalar(t *testing.T) {
	tests := []struct {
		name    string
		rec     model.ResultRecord
		wantErr bool
	}{
		{
			name: "within tolerance",
			rec: model.ResultRecord{
				Identifier:     "max_stress",
				ReferenceValue: 17100.0,
				ComputedValue:  17100.4,
				Tolerance:      1.0,
			},
		},
		{
			name: "outside tolerance",
			rec: model.ResultRecord{
				Identifier:     "max_stress",
				ReferenceValue: 17100.0,
				ComputedValue:  17101.2,
				Tolerance:      1.0,
			},
			wantErr: true,
		},
		{
			name: "difference exactly at tolerance passes",
			rec: model.ResultRecord{
				ReferenceValue: 1.0,
				ComputedValue:  1.5,
				Tolerance:      0.5,
			},
		},
		{
			name: "difference just beyond tolerance fails",
			rec: model.ResultRecord{
				ReferenceValue: 1.0,
				ComputedValue:  1.6,
				Tolerance:      0.5,
			},
			wantErr: true,
		},
		{
			name: "mixed numeric types",
			rec: model.ResultRecord{
				ReferenceValue: 100,
				ComputedValue:  100.3,
				Tolerance:      1,
			},
		},
		{
			name: "exact equality when only reference present",
			rec: model.ResultRecord{
				ReferenceValue: "COMPLETED",
				ComputedValue:  "COMPLETED",
			},
		},
		{
			name: "exact equality failure",
			rec: model.ResultRecord{
				ReferenceValue: "COMPLETED",
				ComputedValue:  "ABORTED",
			},
			wantErr: true,
		},
		{
			name: "numeric equality across types",
			rec: model.ResultRecord{
				ReferenceValue: 4,
				ComputedValue:  4.0,
			},
		},
		{
			name: "no reference and no tolerance is vacuously satisfied",
			rec: model.ResultRecord{
				Identifier:    "informational",
				ComputedValue: 123.4,
			},
		},
		{
			name: "non-numeric computed value with tolerance",
			rec: model.ResultRecord{
				ReferenceValue: 1.0,
				ComputedValue:  "NaN-ish",
				Tolerance:      0.5,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Records([]model.ResultRecord{tt.rec})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRecords_Sequence(t *testing.T) {
	tests := []struct {
		name    string
		rec     model.ResultRecord
		wantErr bool
	}{
		{
			name: "per-index tolerance",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{1.0, 2.0, 3.0},
				ComputedValue:  []interface{}{1.05, 2.1, 2.95},
				Tolerance:      []interface{}{0.1, 0.2, 0.1},
			},
		},
		{
			name: "per-index tolerance failure",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{1.0, 2.0},
				ComputedValue:  []interface{}{1.05, 2.5},
				Tolerance:      []interface{}{0.1, 0.2},
			},
			wantErr: true,
		},
		{
			name: "scalar tolerance applies to every index",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{10.0, 20.0},
				ComputedValue:  []interface{}{10.4, 19.6},
				Tolerance:      0.5,
			},
		},
		{
			name: "length mismatch",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{1.0, 2.0, 3.0},
				ComputedValue:  []interface{}{1.0, 2.0},
				Tolerance:      0.1,
			},
			wantErr: true,
		},
		{
			name: "sequence computed against scalar reference",
			rec: model.ResultRecord{
				ReferenceValue: 1.0,
				ComputedValue:  []interface{}{1.0},
				Tolerance:      0.1,
			},
			wantErr: true,
		},
		{
			name: "sequence without tolerance",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{1.0},
				ComputedValue:  []interface{}{1.0},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Records([]model.ResultRecord{tt.rec})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRecords_Tuples(t *testing.T) {
	tests := []struct {
		name    string
		rec     model.ResultRecord
		wantErr bool
	}{
		{
			name: "shared tolerance tuple",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{
					[]interface{}{1.0, 2.0},
					[]interface{}{3.0, 4.0},
				},
				ComputedValue: []interface{}{
					[]interface{}{1.05, 2.05},
					[]interface{}{3.05, 3.95},
				},
				Tolerance: []interface{}{0.1, 0.1},
			},
		},
		{
			name: "shared tolerance tuple fails on second component",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{
					[]interface{}{1.0, 2.0},
				},
				ComputedValue: []interface{}{
					[]interface{}{1.05, 2.2},
				},
				Tolerance: []interface{}{0.1, 0.1},
			},
			wantErr: true,
		},
		{
			name: "per-index tolerance tuples",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{
					[]interface{}{1.0, 2.0},
					[]interface{}{3.0, 4.0},
				},
				ComputedValue: []interface{}{
					[]interface{}{1.05, 2.05},
					[]interface{}{3.15, 4.25},
				},
				Tolerance: []interface{}{
					[]interface{}{0.1, 0.1},
					[]interface{}{0.2, 0.3},
				},
			},
		},
		{
			name: "tuple size mismatch",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{
					[]interface{}{1.0, 2.0},
				},
				ComputedValue: []interface{}{
					[]interface{}{1.0},
				},
				Tolerance: []interface{}{0.1, 0.1},
			},
			wantErr: true,
		},
		{
			name: "computed element is not a tuple",
			rec: model.ResultRecord{
				ReferenceValue: []interface{}{
					[]interface{}{1.0, 2.0},
				},
				ComputedValue: []interface{}{1.0},
				Tolerance:     []interface{}{0.1, 0.1},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Records([]model.ResultRecord{tt.rec})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRecords_FailFast(t *testing.T) {
	records := []model.ResultRecord{
		{Identifier: "ok", ReferenceValue: 1.0, ComputedValue: 1.0, Tolerance: 0.1},
		{Identifier: "bad", ReferenceValue: 1.0, ComputedValue: 5.0, Tolerance: 0.1},
		{Identifier: "also_bad", ReferenceValue: 1.0, ComputedValue: 9.0, Tolerance: 0.1},
	}

	err := Records(records)
	require.Error(t, err)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, 1, aerr.Index)
	require.Equal(t, "bad", aerr.Label)
}

func TestRecords_Deterministic(t *testing.T) {
	records := []model.ResultRecord{
		{ReferenceValue: 1.0, ComputedValue: 1.05, Tolerance: 0.1},
		{ReferenceValue: 2.0, ComputedValue: 2.5, Tolerance: 0.1},
	}

	first := Records(records)
	second := Records(records)
	require.Error(t, first)
	require.Error(t, second)
	require.Equal(t, first.Error(), second.Error())
}
