package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Offset(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"first page", Filter{Page: 1, PageSize: 20}, 0},
		{"second page", Filter{Page: 2, PageSize: 20}, 20},
		{"deep page", Filter{Page: 5, PageSize: 50}, 200},
		{"zero page", Filter{Page: 0, PageSize: 20}, 0},
		{"no page size", Filter{Page: 3, PageSize: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Offset())
		})
	}
}
