package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bankdesk/internal/model"
)

func TestReformulateParsesResponse(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"reformulated_query": "credit card fraud dispute process", "detected_intent": "CARDS"}`,
	}}
	r := NewReformulator(chat)

	result, err := r.Reformulate(context.Background(), "customer is yelling about stolen card money")
	require.NoError(t, err)

	assert.Equal(t, "customer is yelling about stolen card money", result.OriginalQuestion)
	assert.Equal(t, "credit card fraud dispute process", result.ReformulatedQuery)
	assert.Equal(t, model.IntentCards, result.DetectedIntent)
}

func TestReformulateExtractsEmbeddedJSON(t *testing.T) {
	chat := &fakeChat{responses: []string{
		"Sure, here is the result:\n" +
			`{"reformulated_query": "checking account opening requirements", "detected_intent": "ACCOUNT"}` +
			"\nLet me know if you need anything else.",
	}}
	r := NewReformulator(chat)

	result, err := r.Reformulate(context.Background(), "how to open account")
	require.NoError(t, err)
	assert.Equal(t, "checking account opening requirements", result.ReformulatedQuery)
	assert.Equal(t, model.IntentAccount, result.DetectedIntent)
}

func TestReformulateMalformedResponseFallsBack(t *testing.T) {
	chat := &fakeChat{responses: []string{"I cannot respond in JSON today"}}
	r := NewReformulator(chat)

	result, err := r.Reformulate(context.Background(), "weird question")
	require.NoError(t, err)

	assert.Equal(t, "weird question", result.ReformulatedQuery)
	assert.Equal(t, model.IntentOther, result.DetectedIntent)
}

func TestReformulateUnknownIntentBecomesOther(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"reformulated_query": "wire transfer limits", "detected_intent": "WIRES"}`,
	}}
	r := NewReformulator(chat)

	result, err := r.Reformulate(context.Background(), "wire transfer question")
	require.NoError(t, err)
	assert.Equal(t, "wire transfer limits", result.ReformulatedQuery)
	assert.Equal(t, model.IntentOther, result.DetectedIntent)
}

func TestReformulateLowercaseIntentNormalized(t *testing.T) {
	chat := &fakeChat{responses: []string{
		`{"reformulated_query": "branch hours", "detected_intent": "branch"}`,
	}}
	r := NewReformulator(chat)

	result, err := r.Reformulate(context.Background(), "when does the branch open")
	require.NoError(t, err)
	assert.Equal(t, model.IntentBranch, result.DetectedIntent)
}

func TestReformulateProviderErrorPropagates(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	r := NewReformulator(chat)

	_, err := r.Reformulate(context.Background(), "any question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reformulate question")
}
