package audit

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestMemoryTrailNewestFirstWithFilter(t *testing.T) {
	svc := New(nil)
	ctx := context.Background()
	_ = svc.Record(ctx, Event{Actor: "admin@example.com", Action: ActionSalaryRaised, EntityType: EntityEmployee, EntityID: "e1"}, map[string]string{"salary": "5000"})
	_ = svc.Record(ctx, Event{Actor: "hr@example.com", Action: ActionVerifyToggled, EntityType: EntityEmployee, EntityID: "e2"}, nil)
	_ = svc.Record(ctx, Event{Actor: "Admin@example.com", Action: ActionPaymentCharged, EntityType: EntityPayrollRequest, EntityID: "e1:May:2026"}, nil)

	all, err := svc.List(ctx, Filter{}, false, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Action != ActionPaymentCharged || all[2].Detail != nil {
		t.Fatalf("expected newest first without details, got %+v", all)
	}

	byAdmin, _ := svc.List(ctx, Filter{Actor: "admin@example.com"}, true, 0, 0)
	if len(byAdmin) != 2 || string(byAdmin[1].Detail) != `{"salary":"5000"}` {
		t.Fatalf("expected admin events with details, got %+v", byAdmin)
	}
	if n, _ := svc.Count(ctx, Filter{EntityType: EntityEmployee}); n != 2 {
		t.Fatalf("expected two employee events, got %d", n)
	}

	page, _ := svc.List(ctx, Filter{}, false, 1, 1)
	if len(page) != 1 || page[0].Action != ActionVerifyToggled {
		t.Fatalf("unexpected page %+v", page)
	}
	if rest, _ := svc.List(ctx, Filter{}, false, 10, 5); len(rest) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", rest)
	}
}

func TestMemoryTrailIsBounded(t *testing.T) {
	svc := New(nil)
	for i := 0; i < memoryLimit+10; i++ {
		_ = svc.Record(context.Background(), Event{Actor: "a", Action: ActionFired}, nil)
	}
	if n, _ := svc.Count(context.Background(), Filter{}); n != memoryLimit {
		t.Fatalf("expected %d retained events, got %d", memoryLimit, n)
	}
}

func TestPostgresRecordAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()
	svc := New(mock)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("hr@example.com", ActionPayrollFiled, EntityPayrollRequest, "e1:May:2026", "req-1", "10.0.0.1", []byte(`{"salary":"4000"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	err = svc.Record(context.Background(), Event{
		Actor: "hr@example.com", Action: ActionPayrollFiled, EntityType: EntityPayrollRequest,
		EntityID: "e1:May:2026", RequestID: "req-1", IP: "10.0.0.1",
	}, map[string]string{"salary": "4000"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	now := time.Now()
	mock.ExpectQuery("SELECT id, actor, action, entity_type, entity_id, request_id, ip, created_at FROM audit_events WHERE 1=1 AND action = \\$1").
		WithArgs(ActionPayrollFiled, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "actor", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}).
			AddRow(int64(7), "hr@example.com", ActionPayrollFiled, EntityPayrollRequest, "e1:May:2026", "req-1", "10.0.0.1", now))
	events, err := svc.List(context.Background(), Filter{Action: ActionPayrollFiled}, false, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID != 7 || events[0].Actor != "hr@example.com" {
		t.Fatalf("unexpected events %+v", events)
	}

	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM audit_events WHERE 1=1 AND lower\\(actor\\) = \\$1").
		WithArgs("hr@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	if n, err := svc.Count(context.Background(), Filter{Actor: "HR@example.com"}); err != nil || n != 3 {
		t.Fatalf("count: %d %v", n, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDateRangeFilter(t *testing.T) {
	svc := New(nil)
	day := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := day.AddDate(0, 0, i)
		svc.now = func() time.Time { return at }
		_ = svc.Record(context.Background(), Event{Actor: "a", Action: ActionFired}, nil)
	}

	filter := Filter{
		Since: time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
	}
	events, _ := svc.List(context.Background(), filter, false, 0, 0)
	if len(events) != 1 || !events[0].CreatedAt.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("expected only the middle day, got %+v", events)
	}

	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	if query != "SELECT COUNT(1) FROM audit_events WHERE 1=1 AND created_at >= $1 AND created_at < $2" || len(args) != 2 {
		t.Fatalf("unexpected query %q %v", query, args)
	}
}
