package httpserver

import (
	"net/url"
	"testing"

	"github.com/recipe-explorer/recipe-api/internal/repository"
)

func TestBuildListParams(t *testing.T) {
	values, _ := url.ParseQuery("search= curry &tags=thai,spicy&tags=quick&cuisine=thai&difficulty=medium&min_time=20&max_time=45&sort=rating&page=2&page_size=5")

	params, err := buildListParams(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Search != "curry" {
		t.Fatalf("search not trimmed: %q", params.Search)
	}
	if len(params.Tags) != 3 || params.Tags[0] != "thai" || params.Tags[1] != "spicy" || params.Tags[2] != "quick" {
		t.Fatalf("tags parse failed: %v", params.Tags)
	}
	if params.Cuisine != "thai" || params.Difficulty != "medium" {
		t.Fatalf("facets parse failed: %q %q", params.Cuisine, params.Difficulty)
	}
	if params.MinTime == nil || *params.MinTime != 20 || params.MaxTime == nil || *params.MaxTime != 45 {
		t.Fatalf("time bounds parse failed: %v %v", params.MinTime, params.MaxTime)
	}
	if params.Sort != "rating" {
		t.Fatalf("sort parse failed: %q", params.Sort)
	}
	if params.Page != 2 || params.PageSize != 5 {
		t.Fatalf("paging parse failed: %d %d", params.Page, params.PageSize)
	}
}

func TestBuildListParamsDefaults(t *testing.T) {
	params, err := buildListParams(url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 1 || params.PageSize != repository.DefaultPageSize {
		t.Fatalf("defaults = (%d, %d), want (1, %d)", params.Page, params.PageSize, repository.DefaultPageSize)
	}
	if params.MinTime != nil || params.MaxTime != nil || len(params.Tags) != 0 {
		t.Fatalf("empty query produced filters: %+v", params)
	}
}

func TestBuildListParamsInvalidValues(t *testing.T) {
	for _, raw := range []string{"min_time=abc", "max_time=1.5", "page=x", "page_size=ten"} {
		values, _ := url.ParseQuery(raw)
		if _, err := buildListParams(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRoundAvg(t *testing.T) {
	if got := roundAvg(nil); got != nil {
		t.Fatalf("roundAvg(nil) = %v, want nil", got)
	}
	cases := []struct {
		in, want float64
	}{
		{3.75, 3.8},
		{3.333333, 3.3},
		{5, 5},
		{2.25, 2.3},
	}
	for _, c := range cases {
		in := c.in
		got := roundAvg(&in)
		if got == nil || *got != c.want {
			t.Fatalf("roundAvg(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
