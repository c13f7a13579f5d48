package gopager

import (
	"errors"
	"testing"
)

func Test_ParseDirection(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		fallback Direction
		want     Direction
	}{
		{"upper asc", "ASC", DirectionDESC, DirectionASC},
		{"lower asc", "asc", DirectionDESC, DirectionASC},
		{"padded desc", " desc ", DirectionASC, DirectionDESC},
		{"empty uses fallback", "", DirectionDESC, DirectionDESC},
		{"garbage uses fallback", "up", DirectionASC, DirectionASC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDirection(tt.in, tt.fallback); got != tt.want {
				t.Errorf("%s: got %s want %s", tt.name, got, tt.want)
			}
		})
	}
}

func Test_OrderBy_Validate(t *testing.T) {
	tests := []struct {
		name string
		ord  OrderBy
		ok   bool
	}{
		{"valid", OrderBy{Column: "u.created_at", Direction: DirectionASC}, true},
		{"valid with nulls", OrderBy{Column: "created_at", Direction: DirectionDESC, Nulls: NullsLast}, true},
		{"quoted column", OrderBy{Column: `"u"."created_at"`, Direction: DirectionDESC}, true},
		{"invalid direction", OrderBy{Column: "id", Direction: "bad"}, false},
		{"invalid nulls", OrderBy{Column: "id", Direction: DirectionASC, Nulls: "MIDDLE"}, false},
		{"forbidden symbols", OrderBy{Column: "id; DROP TABLE users", Direction: DirectionASC}, false},
		{"empty column", OrderBy{Direction: DirectionASC}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ord.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("%s: ok=%v err=%v", tt.name, tt.ok, err)
			}
			if err != nil && !errors.Is(err, ErrConfiguration) {
				t.Errorf("%s: err=%v is not a configuration error", tt.name, err)
			}
		})
	}
}

func Test_OrderBy_ToSQL(t *testing.T) {
	tests := []struct {
		name string
		ord  OrderBy
		want string
	}{
		{"plain", OrderBy{Column: "a", Direction: DirectionASC}, "a ASC"},
		{"nulls last", createdAtOrder("u", DirectionDESC), "u.created_at DESC NULLS LAST"},
		{"nulls first", OrderBy{Column: "b", Direction: DirectionASC, Nulls: NullsFirst}, "b ASC NULLS FIRST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ord.ToSQL(); got != tt.want {
				t.Errorf("%s: got %q want %q", tt.name, got, tt.want)
			}
		})
	}
}
