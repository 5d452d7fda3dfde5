package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategy_NumOperations(t *testing.T) {
	composed := Composed(
		Fused(fakeOpt{"a"}, []int{0, 1}),
		Unfused[fakeOpt]([]int{2}),
		Fused(fakeOpt{"b"}, []int{3, 4, 5}),
	)
	assert.Equal(t, 6, composed.NumOperations())
	assert.Equal(t, 5, composed.NumFusedOperations())
}

func TestStrategy_FusedPrefixLen(t *testing.T) {
	testCases := []struct {
		name     string
		strategy Strategy[fakeOpt]
		want     int
	}{
		{"fused leaf", Fused(fakeOpt{}, []int{0, 1, 2}), 3},
		{"unfused leaf", Unfused[fakeOpt]([]int{0, 1}), 0},
		{
			"fused then unfused",
			Composed(Fused(fakeOpt{}, []int{0, 1}), Unfused[fakeOpt]([]int{2})),
			2,
		},
		{
			"unfused blocks the rest",
			Composed(Unfused[fakeOpt]([]int{0}), Fused(fakeOpt{}, []int{1, 2})),
			0,
		},
		{
			"nested composed",
			Composed(
				Composed(Fused(fakeOpt{}, []int{0}), Fused(fakeOpt{}, []int{1})),
				Fused(fakeOpt{}, []int{2}),
			),
			3,
		},
		{
			"nested composed cut short",
			Composed(
				Composed(Fused(fakeOpt{}, []int{0}), Unfused[fakeOpt]([]int{1})),
				Fused(fakeOpt{}, []int{2}),
			),
			1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.strategy.FusedPrefixLen())
		})
	}
}

func TestStrategy_Shape(t *testing.T) {
	s := Composed(Fused(fakeOpt{}, []int{0, 1, 2}), Unfused[fakeOpt]([]int{3}))
	assert.Equal(t, "composed(fused[3],unfused[1])", s.Shape())
}
