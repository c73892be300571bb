package idx_test

import (
	"testing"
	"time"

	"github.com/plateful/auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.NotEmpty(t, id.String())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.False(t, id.IsZero())
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} // last one is too short

	for _, input := range cases {
		_, err := idx.Parse(input)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q should be rejected", input)
	}
}

func TestOrdering(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0).UTC())
	b := idx.NewAt(time.Unix(2, 0).UTC())

	require.Equal(t, -1, idx.Compare(a, b))
	require.Equal(t, 1, idx.Compare(b, a))
	require.Equal(t, 0, idx.Compare(a, a))
}

func TestMonotonicWithinMillisecond(t *testing.T) {
	// Same timestamp, repeated generation: entropy must keep IDs strictly
	// increasing so jti ordering stays stable under load.
	at := time.Now().UTC()

	prev := idx.NewAt(at)
	for n := 0; n < 100; n++ {
		next := idx.NewAt(at)
		require.Equal(t, -1, idx.Compare(prev, next))
		prev = next
	}
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
}

func TestMustParse(t *testing.T) {
	id := idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV") // any valid ULID
	require.False(t, id.IsZero())

	require.Panics(t, func() { idx.MustParse("nope") })
}
