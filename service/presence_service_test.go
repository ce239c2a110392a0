package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPresenceService_UpdateTyping(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ps := NewPresenceService(newTestService(gormDB))

	// (room_id, user_id) 上的 upsert
	mock.ExpectExec("INSERT INTO `lt_typing_indicator`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := ps.UpdateTyping(7, 42, true); err != nil {
		t.Fatalf("UpdateTyping: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPresenceService_FetchTyping(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ps := NewPresenceService(newTestService(gormDB))

	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `lt_typing_indicator`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "user_id", "is_typing", "last_typed_at"}).
			AddRow(uint64(1), uint64(7), uint64(42), true, now))
	// Preload("User")
	mock.ExpectQuery("SELECT \\* FROM `lt_profile`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
			AddRow(uint64(42), "Maria", "Silva"))

	rows, err := ps.FetchTyping(7)
	if err != nil {
		t.Fatalf("FetchTyping: %v", err)
	}
	if len(rows) != 1 || rows[0].UserName != "Maria Silva" {
		t.Fatalf("expected one typing row with display name, got %#v", rows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPresenceService_FetchPresence_NoMembers(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ps := NewPresenceService(newTestService(gormDB))

	// 成员集合为空时短路，不再查状态表
	mock.ExpectQuery("SELECT `user_id` FROM `lt_room_member`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	rows, err := ps.FetchPresence(7)
	if err != nil {
		t.Fatalf("FetchPresence: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPresenceService_FetchPresence(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ps := NewPresenceService(newTestService(gormDB))

	now := time.Now()
	mock.ExpectQuery("SELECT `user_id` FROM `lt_room_member`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(uint64(42)).AddRow(uint64(43)))
	mock.ExpectQuery("SELECT \\* FROM `lt_user_presence`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_online", "status", "last_seen_at"}).
			AddRow(uint64(1), uint64(42), true, "online", now).
			AddRow(uint64(2), uint64(43), false, "offline", now))

	rows, err := ps.FetchPresence(7)
	if err != nil {
		t.Fatalf("FetchPresence: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 presence rows, got %#v", rows)
	}
	if !rows[0].IsOnline || rows[0].Status != "online" {
		t.Fatalf("presence projection wrong: %#v", rows[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPresenceService_SweepStaleTyping(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ps := NewPresenceService(newTestService(gormDB))

	mock.ExpectExec("DELETE FROM `lt_typing_indicator`").
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := ps.SweepStaleTyping(10 * time.Minute)
	if err != nil {
		t.Fatalf("SweepStaleTyping: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 rows swept, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
