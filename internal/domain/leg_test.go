package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeg_Overlaps(t *testing.T) {
	testCases := []struct {
		name string
		a, b Leg
		want bool
	}{
		{name: "touching endpoints", a: Leg{0, 3}, b: Leg{3, 6}, want: false},
		{name: "touching reversed", a: Leg{3, 6}, b: Leg{0, 3}, want: false},
		{name: "contained", a: Leg{0, 6}, b: Leg{2, 5}, want: true},
		{name: "partial", a: Leg{1, 4}, b: Leg{3, 6}, want: true},
		{name: "identical", a: Leg{2, 3}, b: Leg{2, 3}, want: true},
		{name: "disjoint", a: Leg{0, 1}, b: Leg{5, 6}, want: false},
		{name: "after", a: Leg{0, 6}, b: Leg{6, 7}, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a))
		})
	}
}

func TestLeg_Reaches(t *testing.T) {
	assert.True(t, Leg{0, 2}.Reaches(2))
	assert.True(t, Leg{2, 5}.Reaches(2))
	assert.True(t, Leg{0, 6}.Reaches(2))
	assert.False(t, Leg{3, 6}.Reaches(2))
	assert.False(t, Leg{0, 1}.Reaches(2))
}
