package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Catalog shape. The list is fixed and generated, never fetched.
const (
	CourseCount           = 30
	CompletedCourseCount  = 5
	CourseDurationMinutes = 15
	CourseDifficulty      = "中級"
	courseDescription     = "この講義では重要なトピックについて学習します"
)

var (
	// ErrInvalidCourseID is returned when a course id is not a positive integer.
	ErrInvalidCourseID = errors.New("invalid course id")
	// ErrCourseNotFound is returned for a well-formed id outside the catalog.
	ErrCourseNotFound = errors.New("course not found")
)

// CourseSummary is one card of the catalog.
type CourseSummary struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	Completed       bool   `json:"completed"`
	Description     string `json:"description"`
}

// Duration renders the lecture length the way the pages show it.
func (c CourseSummary) Duration() string {
	return fmt.Sprintf("%d分", c.DurationMinutes)
}

// CourseTitle returns the display title of course id.
func CourseTitle(id int) string {
	return fmt.Sprintf("第%d講：講義タイトル %d", id, id)
}

// NewCourseSummary builds the summary for id. It does not range-check id.
func NewCourseSummary(id int) CourseSummary {
	return CourseSummary{
		ID:              id,
		Title:           CourseTitle(id),
		DurationMinutes: CourseDurationMinutes,
		Completed:       id <= CompletedCourseCount,
		Description:     courseDescription,
	}
}

// Catalog returns the full course list, ids 1..CourseCount in order.
func Catalog() []CourseSummary {
	courses := make([]CourseSummary, 0, CourseCount)
	for i := 1; i <= CourseCount; i++ {
		courses = append(courses, NewCourseSummary(i))
	}
	return courses
}

// Progress summarizes completion over a course list.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// ComputeProgress counts completed courses and rounds the percentage to the
// nearest integer. An empty list is 0%.
func ComputeProgress(courses []CourseSummary) Progress {
	p := Progress{Total: len(courses)}
	for _, c := range courses {
		if c.Completed {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(100 * float64(p.Completed) / float64(p.Total)))
	}
	return p
}

// ParseCourseID parses a route parameter into a catalog id.
func ParseCourseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCourseID, raw)
	}
	if id > CourseCount {
		return 0, fmt.Errorf("%w: %d", ErrCourseNotFound, id)
	}
	return id, nil
}

// RelatedCourseIDs returns id-1, id+1 and id+2, dropping anything outside
// the catalog and any repeat of an earlier entry.
func RelatedCourseIDs(id int) []int {
	candidates := [...]int{id - 1, id + 1, id + 2}
	related := make([]int, 0, len(candidates))
	seen := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		if c < 1 || c > CourseCount || seen[c] {
			continue
		}
		seen[c] = true
		related = append(related, c)
	}
	return related
}
