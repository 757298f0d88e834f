// Package timetable builds and solves one department's weekly class
// schedule: it loads the department's sections, teachers, courses,
// classrooms, assignments and rules into an in-memory snapshot, compiles
// that snapshot into the boolean decision model described by the
// scheduling spec, searches for a feasible low-penalty assignment, and
// validates the result against the hard constraints before it is handed
// back to the caller for persistence.
package timetable

import (
	"context"
	"fmt"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type sectionLister interface {
	ListAll(ctx context.Context, department, owner string) ([]models.Section, error)
}

type teacherLister interface {
	ListAll(ctx context.Context, department, owner string) ([]models.Teacher, error)
}

type courseLister interface {
	ListAll(ctx context.Context, department, owner string) ([]models.Course, error)
}

type classroomLister interface {
	ListAll(ctx context.Context, department, owner string) ([]models.Classroom, error)
	ListShared(ctx context.Context) ([]models.Classroom, error)
}

type assignmentLister interface {
	ListAll(ctx context.Context, department, owner string) ([]models.Assignment, error)
}

type ruleLister interface {
	ListAll(ctx context.Context, department, owner string) ([]models.Rule, error)
}

// Snapshot is everything the model builder and solver need for one
// department's generation run, already keyed for O(1) lookup by ID.
type Snapshot struct {
	Department string
	Owner      string

	Sections   map[string]models.Section
	Teachers   map[string]models.Teacher
	Courses    map[string]models.Course
	Classrooms map[string]models.Classroom
	Assignments []models.Assignment
	Rules      []models.ParsedRule

	// AssignmentIndex maps an assignment ID to its position in
	// Assignments (load order).
	AssignmentIndex map[string]int
}

// Loader assembles a Snapshot from the repository layer.
type Loader struct {
	sections   sectionLister
	teachers   teacherLister
	courses    courseLister
	classrooms classroomLister
	assignments assignmentLister
	rules      ruleLister
}

func NewLoader(sections sectionLister, teachers teacherLister, courses courseLister, classrooms classroomLister, assignments assignmentLister, rules ruleLister) *Loader {
	return &Loader{
		sections:    sections,
		teachers:    teachers,
		courses:     courses,
		classrooms:  classrooms,
		assignments: assignments,
		rules:       rules,
	}
}

// Load builds the snapshot for (department, owner). Shared classrooms
// (IsShared or the legacy "Shared" department) are folded into the same
// department-scoped pool the model builder draws from; the global
// coordinator reserves cells on top of whichever department lands them
// first.
func (l *Loader) Load(ctx context.Context, department, owner string) (*Snapshot, error) {
	sections, err := l.sections.ListAll(ctx, department, owner)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	teachers, err := l.teachers.ListAll(ctx, department, owner)
	if err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}
	courses, err := l.courses.ListAll(ctx, department, owner)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	classrooms, err := l.classrooms.ListAll(ctx, department, owner)
	if err != nil {
		return nil, fmt.Errorf("load classrooms: %w", err)
	}
	shared, err := l.classrooms.ListShared(ctx)
	if err != nil {
		return nil, fmt.Errorf("load shared classrooms: %w", err)
	}
	assignments, err := l.assignments.ListAll(ctx, department, owner)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	rawRules, err := l.rules.ListAll(ctx, department, owner)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	snap := &Snapshot{
		Department:      department,
		Owner:           owner,
		Sections:        make(map[string]models.Section, len(sections)),
		Teachers:        make(map[string]models.Teacher, len(teachers)),
		Courses:         make(map[string]models.Course, len(courses)),
		Classrooms:      make(map[string]models.Classroom, len(classrooms)+len(shared)),
		Assignments:     assignments,
		AssignmentIndex: make(map[string]int, len(assignments)),
	}
	for _, s := range sections {
		snap.Sections[s.ID] = s
	}
	for _, t := range teachers {
		snap.Teachers[t.ID] = t
	}
	for _, c := range courses {
		snap.Courses[c.ID] = c
	}
	for _, c := range classrooms {
		snap.Classrooms[c.ID] = c
	}
	for _, c := range shared {
		if _, exists := snap.Classrooms[c.ID]; !exists {
			snap.Classrooms[c.ID] = c
		}
	}
	for i, a := range assignments {
		snap.AssignmentIndex[a.ID] = i
	}

	for _, r := range rawRules {
		parsed, err := models.ParseRule(r)
		if err != nil {
			return nil, fmt.Errorf("parse rule: %w", err)
		}
		snap.Rules = append(snap.Rules, parsed)
	}

	return snap, nil
}

// Availability parses a teacher's stored availability matrix, if present.
func (s *Snapshot) Availability(t models.Teacher) (*models.Availability, map[int]bool, error) {
	daysOff := map[int]bool{}
	if len(t.DaysOff) > 0 {
		var days []int
		if err := t.DaysOff.Unmarshal(&days); err != nil {
			return nil, nil, fmt.Errorf("teacher %s: parse days_off: %w", t.ID, err)
		}
		for _, d := range days {
			daysOff[d] = true
		}
	}
	if len(t.Availability) == 0 {
		return nil, daysOff, nil
	}
	var avail models.Availability
	if err := t.Availability.Unmarshal(&avail); err != nil {
		return nil, nil, fmt.Errorf("teacher %s: parse availability: %w", t.ID, err)
	}
	return &avail, daysOff, nil
}
