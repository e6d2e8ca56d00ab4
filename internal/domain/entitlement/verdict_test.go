package entitlement

import (
	"testing"
	"time"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(n int64) *int64          { return &n }

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  *Record
		want VerdictStatus
	}{
		{name: "no record", rec: nil, want: VerdictNone},
		{
			name: "active window",
			rec:  &Record{Kind: KindWindow, Status: StatusActive, EndDate: ptrTime(now.Add(time.Hour))},
			want: VerdictActive,
		},
		{
			name: "window ends exactly now",
			rec:  &Record{Kind: KindWindow, Status: StatusActive, EndDate: ptrTime(now)},
			want: VerdictActive,
		},
		{
			name: "active flag but window passed",
			rec:  &Record{Kind: KindWindow, Status: StatusActive, EndDate: ptrTime(now.Add(-time.Second))},
			want: VerdictExpired,
		},
		{
			name: "past due inside window",
			rec:  &Record{Kind: KindWindow, Status: StatusPastDue, EndDate: ptrTime(now.Add(time.Hour))},
			want: VerdictExpired,
		},
		{
			name: "canceled",
			rec:  &Record{Kind: KindWindow, Status: StatusCanceled, EndDate: ptrTime(now.Add(time.Hour))},
			want: VerdictExpired,
		},
		{
			name: "window without end date",
			rec:  &Record{Kind: KindWindow, Status: StatusActive},
			want: VerdictExpired,
		},
		{
			name: "time boxed with time left",
			rec:  &Record{Kind: KindTimeBoxed, Status: StatusActive, RemainingSeconds: ptrInt(60)},
			want: VerdictActive,
		},
		{
			name: "time boxed used up",
			rec:  &Record{Kind: KindTimeBoxed, Status: StatusActive, RemainingSeconds: ptrInt(0)},
			want: VerdictExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.rec, now)
			if got.Status != tt.want {
				t.Errorf("Decide() status = %v, want %v", got.Status, tt.want)
			}
			if got.Allowed() != (tt.want == VerdictActive) {
				t.Errorf("Allowed() = %v for status %v", got.Allowed(), got.Status)
			}
		})
	}
}

func TestDecide_ShapeFollowsKind(t *testing.T) {
	now := time.Now()
	end := now.Add(time.Hour)

	w := Decide(&Record{Kind: KindWindow, Status: StatusActive, Plan: "pro", EndDate: &end}, now)
	if w.EndDate == nil || w.RemainingSeconds != nil {
		t.Errorf("window verdict should carry end date only: %+v", w)
	}

	tb := Decide(&Record{Kind: KindTimeBoxed, Status: StatusActive, Plan: PlanHourly, RemainingSeconds: ptrInt(5)}, now)
	if tb.RemainingSeconds == nil || tb.EndDate != nil {
		t.Errorf("time boxed verdict should carry remaining seconds only: %+v", tb)
	}
}

func TestPassWindow(t *testing.T) {
	if d, ok := PassWindow(PlanOneDay); !ok || d != 24*time.Hour {
		t.Errorf("oneday = %v, %v", d, ok)
	}
	if d, ok := PassWindow(PlanOneMonth); !ok || d != 30*24*time.Hour {
		t.Errorf("onemonth = %v, %v", d, ok)
	}
	if _, ok := PassWindow(PlanHourly); ok {
		t.Error("hourly is not a fixed window")
	}
}
