package model

import "testing"

func TestProgressPercentage(t *testing.T) {
	if got := ProgressPercentage(3, 12); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := ProgressPercentage(12, 12); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestProgressPercentageZeroLessons(t *testing.T) {
	if got := ProgressPercentage(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty course, got %v", got)
	}
}

func TestProgressPercentageClamped(t *testing.T) {
	// More completions than published lessons can briefly happen when a
	// lesson is unpublished after completion; the percentage stays capped.
	if got := ProgressPercentage(15, 12); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
	if got := ProgressPercentage(-1, 12); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
}

func TestCanAccessLesson(t *testing.T) {
	free := CourseLesson{IsFree: true}
	paid := CourseLesson{IsFree: false}

	if !CanAccessLesson(free, false, false) {
		t.Fatalf("free lesson refused to a guest")
	}
	if CanAccessLesson(paid, false, false) {
		t.Fatalf("paid lesson granted to a guest")
	}
	if !CanAccessLesson(paid, true, false) {
		t.Fatalf("paid lesson refused to an enrolled user")
	}
	if !CanAccessLesson(paid, false, true) {
		t.Fatalf("paid lesson refused to an active member")
	}
}
