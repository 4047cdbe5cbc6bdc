package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputRowSet(t *testing.T) {
	row := OutputRow{Index: 3}
	row.Set(FieldUpdate{Name: "ktru", Value: Ptr("1")})
	row.Set(FieldUpdate{Name: "trademark", Value: Ptr("ABBOTT")})
	row.Set(FieldUpdate{Name: "ktru", Value: Ptr("2")})

	require.Len(t, row.Updates, 2)
	require.Equal(t, "ktru", row.Updates[0].Name)
	require.Equal(t, "2", *row.Updates[0].Value)
	require.Equal(t, "trademark", row.Updates[1].Name)
}

func TestRecordScoped(t *testing.T) {
	require.True(t, Fact{UnitPrice: NO_PRICE}.RecordScoped())
	require.False(t, Fact{ProductName: "Widget", UnitPrice: NO_PRICE}.RecordScoped())
	require.False(t, Fact{UnitPrice: 100}.RecordScoped())
}
