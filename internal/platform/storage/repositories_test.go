package storage

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestUserRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB(t))

	user := &User{
		UserID:    "user-1",
		Email:     "pilot@acme.example",
		Username:  "pilot",
		Role:      "user",
		CompanyID: "company-1",
		Status:    "active",
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	found, err := repo.FindByEmail(ctx, "pilot@acme.example")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if found == nil || found.UserID != "user-1" {
		t.Fatalf("unexpected user: %+v", found)
	}

	missing, err := repo.FindByEmail(ctx, "nobody@acme.example")
	if err != nil {
		t.Fatalf("FindByEmail error for missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}

	found.Role = "admin"
	if err := repo.Update(ctx, found); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	scoped, err := repo.List(ctx, "company-1")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Role != "admin" {
		t.Fatalf("unexpected scoped list: %+v", scoped)
	}

	if err := repo.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if got, _ := repo.FindByUserID(ctx, "user-1"); got != nil {
		t.Fatalf("expected user removed, got %+v", got)
	}
}

func TestBookingRepositoryScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(testDB(t))

	for _, b := range []*Booking{
		{BookingID: "booking-a", CompanyID: "company-1", UserID: "user-1", Status: "pending"},
		{BookingID: "booking-b", CompanyID: "company-2", UserID: "user-2", Status: "scheduled"},
	} {
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create %s: %v", b.BookingID, err)
		}
	}

	scoped, err := repo.ListByCompany(ctx, "company-1")
	if err != nil {
		t.Fatalf("ListByCompany error: %v", err)
	}
	if len(scoped) != 1 || scoped[0].BookingID != "booking-a" {
		t.Fatalf("unexpected company scope: %+v", scoped)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(all))
	}

	booking, err := repo.FindByBookingID(ctx, "booking-b")
	if err != nil || booking == nil {
		t.Fatalf("FindByBookingID error: %v, %+v", err, booking)
	}
	booking.Status = "completed"
	if err := repo.Update(ctx, booking); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	updated, _ := repo.FindByBookingID(ctx, "booking-b")
	if updated.Status != "completed" {
		t.Fatalf("expected status change, got %s", updated.Status)
	}
}

func TestResourceRepositoryByBooking(t *testing.T) {
	ctx := context.Background()
	repo := NewResourceRepository(testDB(t))

	active := &Resource{
		ResourceID: "res-1",
		BookingID:  "booking-a",
		FileName:   "site.jpg",
		ObjectKey:  "resources/booking-a/site.jpg",
		Status:     "active",
		IsImage:    true,
	}
	deleted := &Resource{
		ResourceID: "res-2",
		BookingID:  "booking-a",
		FileName:   "old.jpg",
		ObjectKey:  "resources/booking-a/old.jpg",
		Status:     "deleted",
	}
	for _, res := range []*Resource{active, deleted} {
		if err := repo.Create(ctx, res); err != nil {
			t.Fatalf("Create %s: %v", res.ResourceID, err)
		}
	}

	list, err := repo.ListByBooking(ctx, "booking-a")
	if err != nil {
		t.Fatalf("ListByBooking error: %v", err)
	}
	if len(list) != 1 || list[0].ResourceID != "res-1" {
		t.Fatalf("expected only active resources, got %+v", list)
	}

	byKey, err := repo.FindByObjectKey(ctx, "resources/booking-a/site.jpg")
	if err != nil || byKey == nil || byKey.ResourceID != "res-1" {
		t.Fatalf("FindByObjectKey mismatch: %v, %+v", err, byKey)
	}
}

func TestChunkSessionCompletion(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkSessionRepository(testDB(t))

	session := &ChunkSession{
		SessionID:   "sess-1",
		BookingID:   "booking-a",
		FileName:    "survey.tif",
		TotalChunks: 3,
		Status:      "pending",
	}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	pending, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending session, got %d", len(pending))
	}

	if err := repo.MarkCompleted(ctx, "sess-1"); err != nil {
		t.Fatalf("MarkCompleted error: %v", err)
	}

	done, err := repo.FindBySessionID(ctx, "sess-1")
	if err != nil || done == nil {
		t.Fatalf("FindBySessionID error: %v", err)
	}
	if done.Status != "completed" || done.CompletedAt == nil {
		t.Fatalf("expected completed session, got %+v", done)
	}

	pending, err = repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending sessions, got %d", len(pending))
	}
}
