package join

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRatioScorer(t *testing.T) {
	scorer := RatioScorer{}

	cases := []struct {
		a, b     string
		expected int
	}{
		{"Widget X", "Widget", 95},
		{"Widget", "Widget", 100},
		{"Контейнер для сбора образца кала NS-PRIME", "контейнер  для сбора образца кала (ns prime)", 100},
		{"Калибратор FIT Hemoglobin", "Hemoglobin FIT калибратор", 95},
		{"", "Widget", 0},
		{"---", "Widget", 0},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, scorer.Score(c.a, c.b), "%q ~ %q", c.a, c.b)
	}

	require.LessOrEqual(t, scorer.Score("Widget", "Gadget"), Threshold)
	require.Greater(t, scorer.Score("Калибратор", "Калибратор FIT Hemoglobin для анализатора"), Threshold)
}

func TestRatioScorerBest(t *testing.T) {
	scorer := RatioScorer{}

	name, score := scorer.Best("Калибратор FIT Transferrin", []string{
		"Калибратор FIT Hemoglobin",
		"Калибратор FIT Transferrin",
		"Контейнер для сбора образца кала",
	})
	require.Equal(t, "Калибратор FIT Transferrin", name)
	require.Equal(t, 100, score)

	name, score = scorer.Best("Widget", nil)
	require.Equal(t, "", name)
	require.Equal(t, 0, score)
}
