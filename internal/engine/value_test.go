package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFlag(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   bool
		wantOK bool
	}{
		{"native_bool", Bool(true), true, true},
		{"yes_name", Name("Yes"), true, true},
		{"on_name", Name("On"), true, true},
		{"true_string", String("true"), true, true},
		{"slash_yes_name", Name("/Yes"), true, true},
		{"off_name", Name("Off"), false, true},
		{"empty_string", String(""), false, true},
		{"one_int", Int(1), true, true},
		{"zero_int", Int(0), false, true},
		{"garbage_string", String("maybe"), false, false},
		{"null", Null(), false, false},
		{"real", Real(0.5), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Flag()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueNumber(t *testing.T) {
	f, ok := Int(7).Number()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	f, ok = Real(0.25).Number()
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)

	f, ok = String("12.5").Number()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	_, ok = String("twelve").Number()
	assert.False(t, ok)

	_, ok = Bool(true).Number()
	assert.False(t, ok)
}

func TestValueName_StripsMarker(t *testing.T) {
	s, ok := Name("/Highlight").Text()
	require.True(t, ok)
	assert.Equal(t, "Highlight", s)

	s, ok = Name("Highlight").Text()
	require.True(t, ok)
	assert.Equal(t, "Highlight", s)
}

func TestValueFloats_AllOrNothing(t *testing.T) {
	fs, ok := NumberArray([]float64{1, 2, 3.5}).Floats()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3.5}, fs)

	mixed := Array(Real(1), String("x"), Real(3))
	_, ok = mixed.Floats()
	assert.False(t, ok, "a partially numeric array is malformed, not a partial answer")

	_, ok = String("1 2 3").Floats()
	assert.False(t, ok)
}

func TestCapSetRedactionArities(t *testing.T) {
	full := CapSet{CapRedactWithOptions: true, CapRedactWithFlag: true}
	arities := full.RedactionArities()
	require.Len(t, arities, 3)
	assert.Len(t, arities[0], 2)
	assert.Len(t, arities[1], 1)
	assert.Empty(t, arities[2])

	bare := CapSet{}
	arities = bare.RedactionArities()
	require.Len(t, arities, 1)
	assert.Empty(t, arities[0])
}
