package utils

import (
	"context"
	"testing"

	"go.viam.com/test"
)

func TestGroupWorkParallelCoversAllIndices(t *testing.T) {
	for _, size := range []int{0, 1, 2, 7, 64, 1001} {
		hits := make([]int, size)
		err := GroupWorkParallel(context.Background(), size, func(from, to int) {
			for i := from; i < to; i++ {
				hits[i]++
			}
		})
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < size; i++ {
			test.That(t, hits[i], test.ShouldEqual, 1)
		}
	}
}

func TestGroupWorkParallelCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := GroupWorkParallel(ctx, 10, func(from, to int) {
		called = true
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, called, test.ShouldBeFalse)
}

func TestAngleConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, 3.141592653589793)
	test.That(t, RadToDeg(DegToRad(57.3)), test.ShouldAlmostEqual, 57.3)
	test.That(t, Square(-3), test.ShouldEqual, 9.0)
	test.That(t, Clamp(2, -1, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(-2, -1, 1), test.ShouldEqual, -1.0)
	test.That(t, Clamp(0.5, -1, 1), test.ShouldEqual, 0.5)
}
