package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestValidateRequiredFieldMissing(t *testing.T) {
	s := Schema{Rules: []Rule{{Path: "name", Kind: KindString, Required: true}}}
	res := s.Validate(map[string]interface{}{})
	assert.False(t, res.OK)
	assert.Equal(t, "name", res.Path)
	assert.Equal(t, "required_field_missing", res.Reason)
}

func TestValidateOptionalFieldAbsentIsOK(t *testing.T) {
	s := Schema{Rules: []Rule{{Path: "nickname", Kind: KindString}}}
	res := s.Validate(map[string]interface{}{})
	assert.True(t, res.OK)
}

func TestValidateWrongType(t *testing.T) {
	s := Schema{Rules: []Rule{{Path: "width", Kind: KindNumber}}}
	res := s.Validate(map[string]interface{}{"width": "64"})
	assert.False(t, res.OK)
	assert.Equal(t, "wrong_type", res.Reason)
}

func TestValidateNumberRange(t *testing.T) {
	s := Schema{Rules: []Rule{{Path: "fps", Kind: KindNumber, Min: ptr(1), Max: ptr(120)}}}

	assert.False(t, s.Validate(map[string]interface{}{"fps": float64(0)}).OK)
	assert.False(t, s.Validate(map[string]interface{}{"fps": float64(200)}).OK)
	assert.True(t, s.Validate(map[string]interface{}{"fps": float64(30)}).OK)
}

func TestValidateEnum(t *testing.T) {
	s := Schema{Rules: []Rule{{Path: "policy", Kind: KindEnum, Enum: []string{"session", "live", "hybrid"}}}}

	assert.True(t, s.Validate(map[string]interface{}{"policy": "hybrid"}).OK)
	res := s.Validate(map[string]interface{}{"policy": "bogus"})
	assert.False(t, res.OK)
	assert.Equal(t, "invalid_enum", res.Reason)
}

func TestValidateArrayNonEmptyAndElements(t *testing.T) {
	s := Schema{Rules: []Rule{{
		Path:     "uvs",
		Kind:     KindArray,
		NonEmpty: true,
		Elem:     &Rule{Kind: KindNumber},
	}}}

	res := s.Validate(map[string]interface{}{"uvs": []interface{}{}})
	assert.False(t, res.OK)
	assert.Equal(t, "empty_array", res.Reason)

	res = s.Validate(map[string]interface{}{"uvs": []interface{}{float64(1), "nope"}})
	assert.False(t, res.OK)
	assert.Equal(t, "wrong_type", res.Reason)
	assert.Equal(t, "uvs[1]", res.Path)

	assert.True(t, s.Validate(map[string]interface{}{"uvs": []interface{}{float64(1), float64(2)}}).OK)
}

func TestValidateNestedObject(t *testing.T) {
	s := Schema{Rules: []Rule{{
		Path: "pivot",
		Kind: KindObject,
		Fields: []Rule{
			{Path: "x", Kind: KindNumber, Required: true},
		},
	}}}

	res := s.Validate(map[string]interface{}{"pivot": map[string]interface{}{}})
	assert.False(t, res.OK)
	assert.Equal(t, "x", res.Path)

	assert.True(t, s.Validate(map[string]interface{}{
		"pivot": map[string]interface{}{"x": float64(1)},
	}).OK)
}

func TestValidateFirstViolationWinsInRuleOrder(t *testing.T) {
	s := Schema{Rules: []Rule{
		{Path: "a", Kind: KindString, Required: true},
		{Path: "b", Kind: KindString, Required: true},
	}}
	res := s.Validate(map[string]interface{}{"b": "present"})
	assert.Equal(t, "a", res.Path)
}
