package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	"Name":     {Name: "Name", Type: PropTitle},
	"Status":   {Name: "Status", Type: PropStatus},
	"Priority": {Name: "Priority", Type: PropNumber},
	"Tags":     {Name: "Tags", Type: PropMultiSelect},
	"Done":     {Name: "Done", Type: PropCheckbox},
	"Due Date": {Name: "Due Date", Type: PropDate},
	"Owner":    {Name: "Owner", Type: PropPeople},
	"Created":  {Name: "Created", Type: PropCreatedTime},
	"Score":    {Name: "Score", Type: PropFormula},
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected map[string]any
	}{
		{
			name: "single condition",
			expr: "Status = Done",
			expected: map[string]any{
				"property": "Status", "status": map[string]any{"equals": "Done"},
			},
		},
		{
			name: "multi word value",
			expr: "Status = In progress",
			expected: map[string]any{
				"property": "Status", "status": map[string]any{"equals": "In progress"},
			},
		},
		{
			name: "number comparison",
			expr: "Priority >= 2",
			expected: map[string]any{
				"property": "Priority", "number": map[string]any{"greater_than_or_equal_to": 2.0},
			},
		},
		{
			name: "contains",
			expr: `Name ~ "launch plan"`,
			expected: map[string]any{
				"property": "Name", "title": map[string]any{"contains": "launch plan"},
			},
		},
		{
			name: "multi word property name",
			expr: "Due Date < 2024-06-01",
			expected: map[string]any{
				"property": "Due Date", "date": map[string]any{"before": "2024-06-01"},
			},
		},
		{
			name: "quoted property name",
			expr: `"Due Date" is empty`,
			expected: map[string]any{
				"property": "Due Date", "date": map[string]any{"is_empty": true},
			},
		},
		{
			name: "is not empty, any case",
			expr: "Owner IS NOT EMPTY",
			expected: map[string]any{
				"property": "Owner", "people": map[string]any{"is_not_empty": true},
			},
		},
		{
			name: "checkbox",
			expr: "Done = false",
			expected: map[string]any{
				"property": "Done", "checkbox": map[string]any{"equals": false},
			},
		},
		{
			name: "and binds tighter than or",
			expr: "Status = Done OR Priority > 3 and Tags ~ urgent",
			expected: map[string]any{"or": []any{
				map[string]any{"property": "Status", "status": map[string]any{"equals": "Done"}},
				map[string]any{"and": []any{
					map[string]any{"property": "Priority", "number": map[string]any{"greater_than": 3.0}},
					map[string]any{"property": "Tags", "multi_select": map[string]any{"contains": "urgent"}},
				}},
			}},
		},
		{
			name: "parentheses and symbols",
			expr: "(Status != Done || Done = true) && Created > 2024-01-01",
			expected: map[string]any{"and": []any{
				map[string]any{"or": []any{
					map[string]any{"property": "Status", "status": map[string]any{"does_not_equal": "Done"}},
					map[string]any{"property": "Done", "checkbox": map[string]any{"equals": true}},
				}},
				map[string]any{"property": "Created", "created_time": map[string]any{"after": "2024-01-01"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.expr, testSchema)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantPos int
		wantErr error
	}{
		{name: "unknown property", expr: "Colour = red", wantPos: 0, wantErr: ErrUnknownProperty},
		{name: "unsupported type", expr: "Score = 1", wantPos: 0, wantErr: ErrUnsupportedProperty},
		{name: "missing operator", expr: "Status Done", wantPos: 11},
		{name: "missing value", expr: "Status =", wantPos: 8},
		{name: "unclosed paren", expr: "(Status = Done", wantPos: 14},
		{name: "unterminated quote", expr: `Name = "abc`, wantPos: 7},
		{name: "operator not valid for type", expr: "Status > Done", wantPos: 0},
		{name: "not a number", expr: "Priority = high", wantPos: 11},
		{name: "trailing tokens", expr: "Status = Done )", wantPos: 14},
		{name: "is without empty", expr: "Status is done", wantPos: 10},
		{name: "lone ampersand", expr: "Status = Done & Done = true", wantPos: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.expr, testSchema)

			var fe *FilterError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantPos, fe.Pos)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseFilter_Empty(t *testing.T) {
	_, err := ParseFilter("   ", testSchema)
	assert.ErrorIs(t, err, ErrEmptyFilter)
}
