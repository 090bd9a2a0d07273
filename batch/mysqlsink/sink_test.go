package mysqlsink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

func TestParseRowActive(t *testing.T) {
	args, err := parseRow(aggregate.ModeActive, "2023-W1,orgA\t2,3\t5")
	require.NoError(t, err)
	require.Equal(t, []interface{}{"2023-W1,orgA", int64(2), int64(3), int64(5)}, args)
}

func TestParseRowPlain(t *testing.T) {
	args, err := parseRow(aggregate.ModeCount, "2023-W1,orgA\t6")
	require.NoError(t, err)
	require.Equal(t, []interface{}{"2023-W1,orgA", int64(6)}, args)
}

func TestParseRowRejectsBadShapes(t *testing.T) {
	for _, row := range []string{
		"2023-W1,orgA",
		"2023-W1,orgA\t2,3",
		"2023-W1,orgA\t2\t5",
		"2023-W1,orgA\t2,x\t5",
	} {
		_, err := parseRow(aggregate.ModeActive, row)
		require.Error(t, err, "row %q", row)
	}
	_, err := parseRow(aggregate.ModeCount, "key\tnot-a-number")
	require.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	q, err := quoteIdentifier("agg_active_per_org_weekly")
	require.NoError(t, err)
	require.Equal(t, "`agg_active_per_org_weekly`", q)

	_, err = quoteIdentifier("bad;table")
	require.Error(t, err)
}

func TestDSNResolvesPasswordEnv(t *testing.T) {
	t.Setenv("SINK_TEST_PASSWORD", "s3cret")
	cfg := DBConfig{User: "agg", Database: "metrics", PasswordEnv: "SINK_TEST_PASSWORD"}
	require.Contains(t, cfg.dsn(), "agg:s3cret@tcp(127.0.0.1:3306)/metrics")
}
