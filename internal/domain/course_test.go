package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestCatalogHasEachIDOnce(t *testing.T) {
	courses := Catalog()
	if len(courses) != CourseCount {
		t.Fatalf("expected %d courses, got %d", CourseCount, len(courses))
	}

	seen := make(map[int]int)
	for _, c := range courses {
		seen[c.ID]++
	}
	for i := 1; i <= CourseCount; i++ {
		if seen[i] != 1 {
			t.Errorf("id %d appears %d times", i, seen[i])
		}
	}
}

func TestCatalogCompletedFlags(t *testing.T) {
	for _, c := range Catalog() {
		want := c.ID <= 5
		if c.Completed != want {
			t.Errorf("course %d: completed=%v, want %v", c.ID, c.Completed, want)
		}
	}
}

func TestCatalogIsDeterministic(t *testing.T) {
	if !reflect.DeepEqual(Catalog(), Catalog()) {
		t.Fatal("expected two generated catalogs to be identical")
	}
}

func TestCatalogCardText(t *testing.T) {
	c := Catalog()[6]
	if c.Title != "第7講：講義タイトル 7" {
		t.Errorf("unexpected title %q", c.Title)
	}
	if c.Duration() != "15分" {
		t.Errorf("unexpected duration %q", c.Duration())
	}
	if c.Description == "" {
		t.Error("expected description to be set")
	}
}

func TestComputeProgress(t *testing.T) {
	p := ComputeProgress(Catalog())
	if p.Completed != 5 || p.Total != 30 {
		t.Fatalf("unexpected counts: %+v", p)
	}
	if p.Percent != 17 {
		t.Fatalf("expected 17%%, got %d%%", p.Percent)
	}
}

func TestComputeProgressEmpty(t *testing.T) {
	if p := ComputeProgress(nil); p.Percent != 0 || p.Total != 0 {
		t.Fatalf("unexpected progress for empty list: %+v", p)
	}
}

func TestRelatedCourseIDs(t *testing.T) {
	tests := []struct {
		id   int
		want []int
	}{
		{id: 1, want: []int{2, 3}},
		{id: 15, want: []int{14, 16, 17}},
		{id: 29, want: []int{28, 30}},
		{id: 30, want: []int{29}},
	}

	for _, tt := range tests {
		got := RelatedCourseIDs(tt.id)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("RelatedCourseIDs(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestParseCourseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{raw: "1", want: 1},
		{raw: "30", want: 30},
		{raw: " 12 ", want: 12},
		{raw: "0", wantErr: ErrInvalidCourseID},
		{raw: "-3", wantErr: ErrInvalidCourseID},
		{raw: "abc", wantErr: ErrInvalidCourseID},
		{raw: "", wantErr: ErrInvalidCourseID},
		{raw: "1.5", wantErr: ErrInvalidCourseID},
		{raw: "31", wantErr: ErrCourseNotFound},
	}

	for _, tt := range tests {
		got, err := ParseCourseID(tt.raw)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseCourseID(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCourseID(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCourseID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
