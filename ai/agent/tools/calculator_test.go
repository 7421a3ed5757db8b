package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expression string
		want       string
	}{
		{"2+2", "4"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"-3 + 5", "2"},
		{"10 % 3", "1"},
		{"5.5 % 2", "1.5"},
		{"7 % 2.5", "2"},
		{"((1+2)*(3+4))", "21"},
		{"2.5 * 2", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := Evaluate(tt.expression)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateRejects(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"injection", "2+2; import os"},
		{"letters", "two plus two"},
		{"empty", "   "},
		{"division by zero", "1/0"},
		{"unbalanced", "(1+2"},
		{"trailing operator", "1+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expression)
			require.Error(t, err)
		})
	}
}

func TestCalculatorCall(t *testing.T) {
	c := NewCalculator()

	result, err := c.Call(context.Background(), `{"expression": "2+2"}`)
	require.NoError(t, err)
	require.Equal(t, "Result: 4", result)

	_, err = c.Call(context.Background(), `{"expression": "2+2; import os"}`)
	require.Error(t, err)

	_, err = c.Call(context.Background(), `not json`)
	require.Error(t, err)
}

func TestUnconfiguredSearchDegrades(t *testing.T) {
	client := NewSerpClient("")
	w := NewWebSearch(client, nil)

	result, err := w.Call(context.Background(), `{"query": "golang release"}`)
	require.NoError(t, err)
	require.Equal(t, "Web search is not configured.", result)

	n := NewNewsSearch(client, nil)
	result, err = n.Call(context.Background(), `{"query": "golang release"}`)
	require.NoError(t, err)
	require.Equal(t, "Web search is not configured.", result)
}
