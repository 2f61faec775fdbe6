package utils

import (
	"testing"
	"time"
)

func Test_GenUniqIDStr(t *testing.T) {
	a := GenUniqIDStr()
	b := GenUniqIDStr()
	if a == b {
		t.Fatal("expected unique ids")
	}
}

func Test_SameCalendarDay(t *testing.T) {
	base := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)

	if !SameCalendarDay(base, base.Add(5*time.Minute)) {
		t.Fatal("same day expected")
	}
	// 20 minutes later crosses midnight, a duration comparison would miss it
	if SameCalendarDay(base, base.Add(20*time.Minute)) {
		t.Fatal("different day expected")
	}
}

func Test_SameCalendarMonth(t *testing.T) {
	a := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC)

	if SameCalendarMonth(a, b) {
		t.Fatal("different month expected")
	}
	if !SameCalendarMonth(a, a.AddDate(0, 0, -15)) {
		t.Fatal("same month expected")
	}
}
