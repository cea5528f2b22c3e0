package industry

import (
	"reflect"
	"testing"
)

func TestSplitRuns(t *testing.T) {
	cases := []struct {
		name    string
		runs    int32
		maxRuns int32
		want    []int32
	}{
		{"unbounded", 25, 0, []int32{25}},
		{"under cap", 7, 10, []int32{7}},
		{"exact cap", 10, 10, []int32{10}},
		{"remainder last", 25, 10, []int32{10, 10, 5}},
		{"exact multiple", 30, 10, []int32{10, 10, 10}},
		{"cap of one", 3, 1, []int32{1, 1, 1}},
		{"zero runs", 0, 10, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitRuns(tc.runs, tc.maxRuns)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("SplitRuns(%d, %d) = %v, want %v", tc.runs, tc.maxRuns, got, tc.want)
			}
			var sum int32
			for _, n := range got {
				if tc.maxRuns > 0 && n > tc.maxRuns {
					t.Fatalf("job of %d runs exceeds cap %d", n, tc.maxRuns)
				}
				sum += n
			}
			if tc.runs > 0 && sum != tc.runs {
				t.Fatalf("split loses runs: sum %d, want %d", sum, tc.runs)
			}
		})
	}
}

func TestEffectiveMaxRuns(t *testing.T) {
	twenty := int32(20)
	cases := []struct {
		name         string
		blueprintMax *int32
		policyCap    int32
		want         int32
	}{
		{"no bounds", nil, 0, 0},
		{"blueprint only", &twenty, 0, 20},
		{"policy only", nil, 10, 10},
		{"policy tightens blueprint", &twenty, 10, 10},
		{"blueprint tighter than policy", &twenty, 50, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := effectiveMaxRuns(tc.blueprintMax, tc.policyCap); got != tc.want {
				t.Fatalf("effectiveMaxRuns = %d, want %d", got, tc.want)
			}
		})
	}
}
