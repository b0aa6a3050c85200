package surreal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid simple", "banned_users", false},
		{"Valid with numbers", "field1", false},
		{"Valid with mixed case", "UserId", false},
		{"Invalid space", "user id", true},
		{"Invalid semicolon", "user;id", true},
		{"Invalid dash", "user-id", true},
		{"Invalid SQL injection", "banned_users; REMOVE TABLE banned_users", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type queryResult struct {
	Status string
	Result interface{}
}

func TestUnwrapResult(t *testing.T) {
	rows := []interface{}{map[string]interface{}{"user_id": "1"}}

	results := []queryResult{{Status: "OK", Result: "first"}, {Status: "OK", Result: rows}}
	assert.Equal(t, rows, unwrapResult(&results), "last statement wins")

	assert.Equal(t, "single", unwrapResult(queryResult{Result: "single"}))
	assert.Nil(t, unwrapResult(&[]queryResult{}))
	assert.Nil(t, unwrapResult(nil))
	assert.Equal(t, 42, unwrapResult(42))
}
