package vector

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokvault/pokvault/internal/domain"
)

func TestEncode_Nil(t *testing.T) {
	assert.Nil(t, Encode(nil))
}

func TestDecode_Nil(t *testing.T) {
	got, err := Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncode_Format(t *testing.T) {
	encoded := Encode([]float32{0.1, -0.5, 1.0})
	require.NotNil(t, encoded)
	assert.Equal(t, "[0.1,-0.5,1]", *encoded)
}

func TestRoundTrip_Exact(t *testing.T) {
	vectors := [][]float32{
		{},
		{0},
		{0.1, -0.5, 1.0},
		{math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32},
		{1.0000001, -0.0000001, 3.1415927},
	}

	// A full-dimension vector with arbitrary finite values.
	rng := rand.New(rand.NewSource(42))
	big := make([]float32, 384)
	for i := range big {
		big[i] = rng.Float32()*2 - 1
	}
	vectors = append(vectors, big)

	for _, v := range vectors {
		decoded, err := Decode(Encode(v))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{
		"",
		"0.1,0.2",
		"[0.1,0.2",
		"0.1,0.2]",
		"[0.1,,0.3]",
		"[0.1,abc,0.3]",
		"[0.1 0.2]",
	}

	for _, input := range cases {
		s := input
		got, err := Decode(&s)
		require.Errorf(t, err, "input %q should not parse", input)
		assert.Nil(t, got)

		var domainErr *domain.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, domain.ErrCodeDataIntegrity, domainErr.Code)
	}
}

func TestDecode_EmptyBrackets(t *testing.T) {
	s := "[]"
	got, err := Decode(&s)
	require.NoError(t, err)
	assert.Equal(t, []float32{}, got)
}
