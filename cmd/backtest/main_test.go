package main

import (
	"reflect"
	"testing"
)

func TestParseSeeds(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{"", nil, false},
		{"  ", nil, false},
		{"7", []int64{7}, false},
		{"1, 2,3", []int64{1, 2, 3}, false},
		{"-4,0", []int64{-4, 0}, false},
		{"1,,2", nil, true},
		{"x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSeeds(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSeeds(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseSeeds(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
