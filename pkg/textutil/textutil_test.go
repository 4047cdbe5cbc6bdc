package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLocalizedMinorUnits(t *testing.T) {
	table := []struct {
		input    string
		expected int64
		fails    bool
	}{
		{input: "131 274,00", expected: 13127400},
		{input: "1 234,5 ₽", expected: 123450},
		{input: "12", expected: 1200},
		{input: "0,019", expected: 1},
		{input: "", fails: true},
		{input: "abc", fails: true},
	}

	for _, row := range table {
		result, err := ParseLocalizedMinorUnits(row.input)
		if row.fails {
			require.Error(t, err, row.input)
			continue
		}
		require.NoError(t, err, row.input)
		require.Equal(t, row.expected, result, row.input)
	}
}

func TestParseMinorUnitsTruncates(t *testing.T) {
	result, err := ParseMinorUnits("10.999")
	require.NoError(t, err)
	require.Equal(t, int64(1099), result)

	result, err = ParseMinorUnits(" 1000 ")
	require.NoError(t, err)
	require.Equal(t, int64(100000), result)
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "widget x", NormalizeName("  Widget-X\t"))
	require.Equal(t, "контейнер ns prime", NormalizeName("Контейнер NS-PRIME"))
	require.Equal(t, "", NormalizeName(" - "))
}

func TestIsNumeric(t *testing.T) {
	require.True(t, IsNumeric("1"))
	require.True(t, IsNumeric("120"))
	require.False(t, IsNumeric(""))
	require.False(t, IsNumeric("1."))
	require.False(t, IsNumeric("Наименование"))
}
