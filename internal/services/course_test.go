package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/types"
)

type fakeCourseRepo struct {
	courses map[uuid.UUID]*types.Course

	createCalls int
	createErr   error
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[uuid.UUID]*types.Course)}
}

func (f *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return courses, nil
}

func (f *fakeCourseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	out := []*types.Course{}
	for _, id := range courseIDs {
		if c, ok := f.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error) {
	out := []*types.Course{}
	for _, c := range f.courses {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) GetByUserIDAndTerm(ctx context.Context, tx *gorm.DB, userID uuid.UUID, term string) ([]*types.Course, error) {
	out := []*types.Course{}
	for _, c := range f.courses {
		if c.UserID == userID && c.Term == term {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) GetByUserIDAndCode(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code string) ([]*types.Course, error) {
	out := []*types.Course{}
	for _, c := range f.courses {
		if c.UserID == userID && c.Code == code {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, updates map[string]interface{}) error {
	c, ok := f.courses[courseID]
	if !ok {
		return fmt.Errorf("not found")
	}
	if v, ok := updates["code"]; ok {
		c.Code = v.(string)
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["description"]; ok {
		c.Description = v.(string)
	}
	if v, ok := updates["term"]; ok {
		c.Term = v.(string)
	}
	return nil
}

func (f *fakeCourseRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range courseIDs {
		if _, ok := f.courses[id]; ok {
			delete(f.courses, id)
			n++
		}
	}
	return n, nil
}

func newTestCourseService(t *testing.T, repo *fakeCourseRepo) CourseService {
	t.Helper()
	return NewCourseService(nil, testLogger(t), repo, nil)
}

func TestAddCourse_RejectsEmptyCode(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	_, err := svc.AddCourse(ctx, nil, CourseInput{Code: "   ", Name: "Intro to CS"})
	if err == nil {
		t.Fatalf("expected error for empty code")
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no create call, got %d", repo.createCalls)
	}
}

func TestAddCourse_RejectsEmptyName(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	if _, err := svc.AddCourse(ctx, nil, CourseInput{Code: "CS 101", Name: ""}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestAddCourse_TrimsAndPersists(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	userID := uuid.New()
	ctx := authedContext(userID)

	course, err := svc.AddCourse(ctx, nil, CourseInput{
		Code: "  CS 101  ",
		Name: " Intro to CS ",
		Term: " Fall 2026 ",
		Sections: []types.Section{
			{SectionID: "A01"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if course.Code != "CS 101" || course.Name != "Intro to CS" || course.Term != "Fall 2026" {
		t.Fatalf("expected trimmed fields, got %+v", course)
	}
	if course.UserID != userID {
		t.Fatalf("expected course owned by caller")
	}
	sections, err := course.GetSections()
	if err != nil || len(sections) != 1 || sections[0].SectionID != "A01" {
		t.Fatalf("sections round trip failed: %v %+v", err, sections)
	}
}

func TestAddCourses_FailsBatchWhenAnyInvalid(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	_, err := svc.AddCourses(ctx, nil, []CourseInput{
		{Code: "CS 101", Name: "Intro to CS"},
		{Code: "", Name: "Nameless"},
	})
	if err == nil {
		t.Fatalf("expected batch failure")
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no create call, got %d", repo.createCalls)
	}
}

func TestAddCourse_RequiresAuthentication(t *testing.T) {
	svc := newTestCourseService(t, newFakeCourseRepo())
	if _, err := svc.AddCourse(context.Background(), nil, CourseInput{Code: "CS 101", Name: "Intro"}); err == nil {
		t.Fatalf("expected error without request data")
	}
}

func TestGetCourseByCode_NotFound(t *testing.T) {
	svc := newTestCourseService(t, newFakeCourseRepo())
	ctx := authedContext(uuid.New())

	_, err := svc.GetCourseByCode(ctx, "CS 999")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetUserCoursesByTerm_FiltersTerm(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	svc.AddCourse(ctx, nil, CourseInput{Code: "CS 101", Name: "Intro", Term: "Fall 2026"})
	svc.AddCourse(ctx, nil, CourseInput{Code: "CS 201", Name: "Data Structures", Term: "Winter 2027"})

	courses, err := svc.GetUserCoursesByTerm(ctx, "Fall 2026")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 1 || courses[0].Code != "CS 101" {
		t.Fatalf("unexpected term filter result: %+v", courses)
	}
}

func TestUpdateCourse_CrossUserReadsAsNotFound(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)

	owner := authedContext(uuid.New())
	course, err := svc.AddCourse(owner, nil, CourseInput{Code: "CS 101", Name: "Intro"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	other := authedContext(uuid.New())
	name := "Hijacked"
	_, err = svc.UpdateCourse(other, course.ID, CourseUpdateInput{Name: &name})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found for cross-user update, got %v", err)
	}
	if repo.courses[course.ID].Name != "Intro" {
		t.Fatalf("course mutated by unauthorized caller")
	}
}

func TestUpdateCourse_PartialUpdate(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	course, err := svc.AddCourse(ctx, nil, CourseInput{Code: "CS 101", Name: "Intro", Term: "Fall 2026"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	desc := "Updated description"
	updated, err := svc.UpdateCourse(ctx, course.ID, CourseUpdateInput{Description: &desc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("description not updated: %+v", updated)
	}
	if updated.Code != "CS 101" || updated.Term != "Fall 2026" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateCourse_RejectsEmptyCode(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	course, _ := svc.AddCourse(ctx, nil, CourseInput{Code: "CS 101", Name: "Intro"})
	empty := " "
	if _, err := svc.UpdateCourse(ctx, course.ID, CourseUpdateInput{Code: &empty}); err == nil {
		t.Fatalf("expected error for empty code update")
	}
}

func TestDeleteCourse_SecondDeleteNotFound(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newTestCourseService(t, repo)
	ctx := authedContext(uuid.New())

	course, _ := svc.AddCourse(ctx, nil, CourseInput{Code: "CS 101", Name: "Intro"})
	if err := svc.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	err := svc.DeleteCourse(ctx, course.ID)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
