package services

import (
	"biggest-circle-service/internal/domain"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEstimateCircles(t *testing.T) {
	tests := []struct {
		name     string
		poly     domain.Polygon
		vertices []domain.Point
		want     []domain.Circle
	}{
		{
			name:     "square center",
			poly:     square(),
			vertices: []domain.Point{{X: 50, Y: 50}},
			want:     []domain.Circle{{Center: domain.Point{X: 50, Y: 50}, Radius: 50}},
		},
		{
			name:     "hexagon center",
			poly:     hexagon(),
			vertices: []domain.Point{{X: 0, Y: 0}},
			want:     []domain.Circle{{Center: domain.Point{X: 0, Y: 0}, Radius: 86}},
		},
		{
			name:     "keeps order and truncates",
			poly:     square(),
			vertices: []domain.Point{{X: 10, Y: 20}, {X: 50, Y: 50}},
			want: []domain.Circle{
				{Center: domain.Point{X: 10, Y: 20}, Radius: 10},
				{Center: domain.Point{X: 50, Y: 50}, Radius: 50},
			},
		},
		{
			name:     "no vertices",
			poly:     square(),
			vertices: nil,
			want:     []domain.Circle{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCircles(tt.poly, tt.vertices)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("circles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEstimateCirclesTruncatesIrrationalRadius(t *testing.T) {
	tri := domain.Polygon{Points: []domain.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}}}

	// The hypotenuse is 30/sqrt(2) ~ 21.2 away from (30,40).
	got := EstimateCircles(tri, []domain.Point{{X: 30, Y: 40}})
	if len(got) != 1 || got[0].Radius != 21 {
		t.Fatalf("got %v, want radius 21", got)
	}
}

func TestLargest(t *testing.T) {
	circles := []domain.Circle{
		{Center: domain.Point{X: 1, Y: 1}, Radius: 3},
		{Center: domain.Point{X: 2, Y: 2}, Radius: 7},
		{Center: domain.Point{X: 3, Y: 3}, Radius: 7},
		{Center: domain.Point{X: 4, Y: 4}, Radius: 5},
	}

	got, err := Largest(circles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Circle{Center: domain.Point{X: 2, Y: 2}, Radius: 7}
	if got != want {
		t.Fatalf("Largest = %v, want %v (first of the tied maxima)", got, want)
	}
}

func TestLargestEmpty(t *testing.T) {
	_, err := Largest(nil)
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}
