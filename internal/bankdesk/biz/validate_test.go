package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSumsScores(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"grounded_score": 38, "relevant_score": 28, "complete_score": 18, "clear_score": 9,
		  "is_grounded": true, "is_relevant": true, "is_complete": true,
		  "reasoning": "Excellent answer fully supported by sources"}`,
	}}
	v := NewValidator(chat)

	result, err := v.Validate(context.Background(), "How do I open an account?",
		"You need valid ID and a $25 deposit.",
		[]string{"To open a checking account: Valid ID, Minimum deposit $25"})
	require.NoError(t, err)

	assert.Equal(t, 93, result.ConfidenceScore)
	assert.True(t, result.IsGrounded)
	assert.True(t, result.IsRelevant)
	assert.True(t, result.IsComplete)
	assert.Equal(t, "Excellent answer fully supported by sources", result.Reasoning)
}

func TestValidateCapsScores(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"grounded_score": 100, "relevant_score": 50, "complete_score": 30, "clear_score": 20,
		  "is_grounded": true, "is_relevant": true, "is_complete": true, "reasoning": "Perfect score"}`,
	}}
	v := NewValidator(chat)

	result, err := v.Validate(context.Background(), "q", "a", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, 100, result.ConfidenceScore)
}

func TestValidateNegativeScoresClampToZero(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"grounded_score": -5, "relevant_score": 0, "complete_score": 0, "clear_score": 0,
		  "is_grounded": false, "is_relevant": false, "is_complete": false, "reasoning": "bad"}`,
	}}
	v := NewValidator(chat)

	result, err := v.Validate(context.Background(), "q", "a", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ConfidenceScore)
}

func TestValidateMissingFieldsUseDefaults(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"grounded_score": 40, "is_grounded": true, "reasoning": "only grounding reported"}`,
	}}
	v := NewValidator(chat)

	result, err := v.Validate(context.Background(), "q", "a", []string{"s"})
	require.NoError(t, err)

	// 40 + defaults 15 + 10 + 5.
	assert.Equal(t, 70, result.ConfidenceScore)
	assert.True(t, result.IsGrounded)
	assert.False(t, result.IsRelevant)
}

func TestValidateAllFieldsMissing(t *testing.T) {
	chat := &fakeChat{responses: []string{`{"reasoning": "no scores"}`}}
	v := NewValidator(chat)

	result, err := v.Validate(context.Background(), "q", "a", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, 50, result.ConfidenceScore)
}

func TestValidateUnparseableResponse(t *testing.T) {
	chat := &fakeChat{responses: []string{"This is not valid JSON"}}
	v := NewValidator(chat)

	result, err := v.Validate(context.Background(), "q", "a", []string{"s"})
	require.NoError(t, err)

	assert.Equal(t, 50, result.ConfidenceScore)
	assert.Contains(t, result.Reasoning, "Unable to parse")
	assert.False(t, result.IsGrounded)
	assert.False(t, result.IsRelevant)
	assert.False(t, result.IsComplete)
}

func TestValidateProviderErrorPropagates(t *testing.T) {
	chat := &fakeChat{err: errors.New("timeout")}
	v := NewValidator(chat)

	_, err := v.Validate(context.Background(), "q", "a", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to validate answer")
}
