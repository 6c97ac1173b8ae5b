package structs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		Name   string
		Given  *Query
		Expect *Query
	}{
		{
			Name:   "SetsDefaultLimit",
			Given:  &Query{},
			Expect: &Query{Limit: queryLimitDefault},
		},
		{
			Name:   "SetsMaxLimit",
			Given:  &Query{Limit: queryLimitMax + 1},
			Expect: &Query{Limit: queryLimitMax},
		},
		{
			Name:   "NegativeLimit",
			Given:  &Query{Limit: -1},
			Expect: &Query{Limit: queryLimitDefault},
		},
		{
			Name:   "KeepsFilters",
			Given:  &Query{Kind: KindScan, Status: RUNNING, Limit: 5},
			Expect: &Query{Kind: KindScan, Status: RUNNING, Limit: 5},
		},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			c.Given.Sanitize()
			assert.Equal(t, c.Given, c.Expect)
		})
	}
}
