package collection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bot struct {
	id       string
	name     string
	email    string
	category string
	enabled  bool
}

func (b bot) Key() string            { return b.id }
func (b bot) SearchFields() []string { return []string{b.name, b.email, b.category} }
func (b bot) IsActive() bool         { return b.enabled }

func makeBots(n int) []bot {
	out := make([]bot, n)
	for i := range out {
		out[i] = bot{
			id:      fmt.Sprintf("b%d", i+1),
			name:    fmt.Sprintf("Bot %d", i+1),
			email:   fmt.Sprintf("bot%d@example.com", i+1),
			enabled: i%2 == 0,
		}
	}
	return out
}

func keys(items []bot) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

// TestFilter tests search and status matching.
func TestFilter(t *testing.T) {
	items := []bot{
		{id: "1", name: "Acme Support", email: "help@acme.io", category: "Retail", enabled: true},
		{id: "2", name: "Globex", email: "bot@globex.com", category: "Technology", enabled: false},
		{id: "3", name: "Initech", email: "it@initech.com", category: "Technology", enabled: true},
	}

	tests := []struct {
		name   string
		query  string
		status StatusFilter
		want   []string
	}{
		{"empty query all", "", StatusAll, []string{"1", "2", "3"}},
		{"case insensitive", "  ACME ", StatusAll, []string{"1"}},
		{"matches any field", "technology", StatusAll, []string{"2", "3"}},
		{"active only", "technology", StatusActive, []string{"3"}},
		{"inactive only", "", StatusInactive, []string{"2"}},
		{"no match", "zzz", StatusAll, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(Filter(items, tt.query, tt.status)))
		})
	}
}

// TestFilterIdempotent tests that filtering twice changes nothing.
func TestFilterIdempotent(t *testing.T) {
	items := makeBots(30)
	once := Filter(items, "bot 1", StatusActive)
	twice := Filter(once, "bot 1", StatusActive)
	assert.Equal(t, keys(once), keys(twice))
}

// TestParseStatusFilter tests status parsing and cycling.
func TestParseStatusFilter(t *testing.T) {
	f, err := ParseStatusFilter("Active")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, f)

	f, err = ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, StatusAll, f)

	_, err = ParseStatusFilter("archived")
	assert.Error(t, err)

	assert.Equal(t, StatusActive, StatusAll.Next())
	assert.Equal(t, StatusInactive, StatusActive.Next())
	assert.Equal(t, StatusAll, StatusInactive.Next())
}

// TestPaginate tests page slicing and counts.
func TestPaginate(t *testing.T) {
	items := makeBots(23)

	p := Paginate(items, 1, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 23, p.TotalCount)
	assert.Len(t, p.Items, 10)

	p = Paginate(items, 3, 10)
	assert.Equal(t, []string{"b21", "b22", "b23"}, keys(p.Items))

	p = Paginate(items, 4, 10)
	assert.Empty(t, p.Items)
	assert.Equal(t, 4, p.Page)

	p = Paginate([]bot{}, 1, 10)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}

// TestPaginateConcatenation tests that all pages reproduce the filtered list.
func TestPaginateConcatenation(t *testing.T) {
	for _, per := range PageSizes {
		items := makeBots(47)
		var all []bot
		total := TotalPages(len(items), per)
		for page := 1; page <= total; page++ {
			all = append(all, Paginate(items, page, per).Items...)
		}
		assert.Equal(t, keys(items), keys(all), "perPage=%d", per)
	}
}

// TestWindow tests the five-slot page window.
func TestWindow(t *testing.T) {
	tests := []struct {
		current, total int
		pages          []int
		ellipsis       bool
	}{
		{1, 1, []int{1}, false},
		{2, 4, []int{1, 2, 3, 4}, false},
		{3, 5, []int{1, 2, 3, 4, 5}, false},
		{1, 10, []int{1, 2, 3, 4, 5}, true},
		{3, 10, []int{1, 2, 3, 4, 5}, true},
		{5, 10, []int{3, 4, 5, 6, 7}, true},
		{7, 10, []int{5, 6, 7, 8, 9}, true},
		{8, 10, []int{6, 7, 8, 9, 10}, false},
		{10, 10, []int{6, 7, 8, 9, 10}, false},
		{1, 6, []int{1, 2, 3, 4, 5}, true},
		{4, 6, []int{2, 3, 4, 5, 6}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.current, tt.total), func(t *testing.T) {
			pages, ellipsis := Window(tt.current, tt.total)
			assert.Equal(t, tt.pages, pages)
			assert.Equal(t, tt.ellipsis, ellipsis)
		})
	}
}

// TestPageSizes tests page size validation and stepping.
func TestPageSizes(t *testing.T) {
	assert.True(t, ValidPageSize(20))
	assert.False(t, ValidPageSize(15))

	assert.Equal(t, 20, NextPageSize(10, 1))
	assert.Equal(t, 50, NextPageSize(50, 1))
	assert.Equal(t, 5, NextPageSize(5, -1))
	assert.Equal(t, 5, NextPageSize(10, -1))
}
