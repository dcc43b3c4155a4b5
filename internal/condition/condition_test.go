package condition

import (
	"testing"

	"clrdebug/internal/valuegraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() valuegraph.Frame {
	this := valuegraph.Value{Kind: valuegraph.KindObject, TypeName: "Order", Address: 0x1}
	return valuegraph.Frame{
		This: &this,
		Locals: map[string]valuegraph.Value{
			"count":  {Kind: valuegraph.KindPrimitive, TypeName: "Int32", Primitive: "3"},
			"name":   {Kind: valuegraph.KindPrimitive, TypeName: "String", Primitive: "widget"},
			"active": {Kind: valuegraph.KindPrimitive, TypeName: "Boolean", Primitive: "true"},
			"nothing": {Kind: valuegraph.KindNull, TypeName: "Object"},
		},
		Arguments: map[string]valuegraph.Value{},
	}
}

func TestEvaluateComparisons(t *testing.T) {
	frame := testFrame()
	store := valuegraph.NewFakeStore()

	cases := []struct {
		expr string
		want bool
	}{
		{"count == 3", true},
		{"count != 3", false},
		{"count < 10", true},
		{"count <= 3", true},
		{"count > 3", false},
		{"count >= 3", true},
		{`name == "widget"`, true},
		{`name == "other"`, false},
		{"active == true", true},
		{"nothing == null", true},
		{"nothing != null", false},
		{"count == 3 && active == true", true},
		{"count == 99 || active == true", true},
		{"!(count == 99)", true},
		{"(count == 3 && active == true) || name == \"nope\"", true},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expr, 1, frame, store)
		require.Nil(t, err, "expr %q: %v", tc.expr, err)
		assert.Equal(t, tc.want, got, "expr %q", tc.expr)
	}
}

func TestEvaluateHitCount(t *testing.T) {
	frame := testFrame()
	store := valuegraph.NewFakeStore()
	got, err := Evaluate("hit_count >= 5", 5, frame, store)
	require.Nil(t, err)
	assert.True(t, got)

	got, err = Evaluate("hit_count >= 5", 4, frame, store)
	require.Nil(t, err)
	assert.False(t, got)
}

func TestValidateRejectsTrailingOperator(t *testing.T) {
	err := Validate("hit_count >")
	require.NotNil(t, err)
	require.NotNil(t, err.Position)
	assert.Equal(t, 11, *err.Position)
}

func TestValidateRejectsEmpty(t *testing.T) {
	err := Validate("")
	require.NotNil(t, err)
	require.NotNil(t, err.Position)
	assert.Equal(t, 0, *err.Position)
}

func TestValidateRejectsUnbalancedParens(t *testing.T) {
	err := Validate("(count == 3")
	require.NotNil(t, err)
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	err := Validate(`count == 3 && (name == "widget" || !(active == false))`)
	assert.Nil(t, err)
}

func TestEvaluateUnresolvedPathIsConditionError(t *testing.T) {
	frame := testFrame()
	store := valuegraph.NewFakeStore()
	_, err := Evaluate("missingLocal == 1", 1, frame, store)
	require.NotNil(t, err)
	assert.Equal(t, "InvalidCondition", string(err.Code))
}
