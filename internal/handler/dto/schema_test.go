package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_BudgetRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid", `{"name":"Groceries"}`, "Groceries", false},
		{"extra fields ignored", `{"name":"Rent","color":"red"}`, "Rent", false},
		{"missing name", `{}`, "", true},
		{"empty name", `{"name":""}`, "", true},
		{"wrong type", `{"name":42}`, "", true},
		{"not an object", `["Groceries"]`, "", true},
		{"malformed", `{"name":`, "", true},
		{"too long", `{"name":"` + strings.Repeat("a", 256) + `"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req BudgetRequest
			err := Decode(strings.NewReader(tt.body), &req)
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve), "got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Name)
		})
	}
}

func TestDecode_RegisterRequest(t *testing.T) {
	var req RegisterRequest
	err := Decode(strings.NewReader(`{"email":"ada@example.com","password":"secret1","name":"Ada","surname":"Lovelace"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", req.Surname)

	err = Decode(strings.NewReader(`{"email":"ada@example.com","password":"123","name":"Ada","surname":"L"}`), &req)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Message, "password")
}

func TestSchema_BudgetRequest(t *testing.T) {
	raw, err := Schema[BudgetRequest]()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Contains(t, doc["required"], "name")
}
