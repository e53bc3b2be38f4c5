package chartseed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bookkeeper/internal/domain"
)

func TestLoadDefault(t *testing.T) {
	chart, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChart, chart)
}

func TestLoadExtend(t *testing.T) {
	chart, err := Load("testdata/extend.yaml")
	require.NoError(t, err)
	require.Len(t, chart, len(domain.DefaultChart)+2)

	last := chart[len(chart)-1]
	assert.Equal(t, "6210", last.Code)
	assert.Equal(t, "6200", last.ParentCode)
	assert.Equal(t, domain.AccountTypeExpense, last.Type)
	assert.False(t, last.IsSystem)
}

func TestParseReplace(t *testing.T) {
	chart, err := Parse(strings.NewReader(`
accounts:
  - {code: "1010", name: Current Account, type: asset, is_system: true}
  - {code: "3000", name: Capital, type: equity}
`))
	require.NoError(t, err)
	require.Len(t, chart, 2)
	assert.Equal(t, "Current Account", chart[0].Name)
	assert.True(t, chart[0].IsSystem)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "no accounts", doc: "accounts: []\n"},
		{name: "unknown field", doc: "accounts:\n  - {code: \"1\", name: x, type: asset, colour: red}\n"},
		{name: "bad type", doc: "accounts:\n  - {code: \"9000\", name: x, type: memo}\n"},
		{name: "duplicate code", doc: "extend: true\naccounts:\n  - {code: \"1010\", name: Bank again, type: asset}\n"},
		{name: "dangling parent", doc: "accounts:\n  - {code: \"9100\", name: x, type: asset, parent_code: \"9000\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}
