package models

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// TestTableNames 测试表名生成（带前缀）
func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Profile{}.TableName():         "lt_profile",
		Room{}.TableName():            "lt_room",
		RoomMember{}.TableName():      "lt_room_member",
		Message{}.TableName():         "lt_message",
		MessageReaction{}.TableName(): "lt_message_reaction",
		TypingIndicator{}.TableName(): "lt_typing_indicator",
		UserPresence{}.TableName():    "lt_user_presence",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName() = %s, want %s", got, want)
		}
	}
}

// TestProfileDisplayName 测试展示名拼接（last name 可为空）
func TestProfileDisplayName(t *testing.T) {
	p := Profile{FirstName: "Maria", LastName: "Silva"}
	if got := p.DisplayName(); got != "Maria Silva" {
		t.Errorf("DisplayName() = %s, want Maria Silva", got)
	}

	p = Profile{FirstName: "Maria"}
	if got := p.DisplayName(); got != "Maria" {
		t.Errorf("DisplayName() = %s, want Maria", got)
	}
}

// TestMessageDAO_FindVisibleByRoom 测试可见消息查询：排除软删 + 游标上界
func TestMessageDAO_FindVisibleByRoom(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}

	dao := NewMessageDAO(db)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `lt_message` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "sender_id", "content", "created_at"}).
			AddRow(uint64(3), uint64(7), uint64(42), "olá", now.Add(-time.Minute)))
	// GORM 按名字排序执行 preload：Reactions 在 Sender 前；
	// Reactions 无行时不会再 preload Reactions.User
	mock.ExpectQuery("SELECT \\* FROM `lt_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}))
	mock.ExpectQuery("SELECT \\* FROM `lt_profile`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name"}).AddRow(uint64(42), "Maria"))

	msgs, err := dao.FindVisibleByRoom(7, 50, &now)
	if err != nil {
		t.Fatalf("FindVisibleByRoom: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != 3 {
		t.Fatalf("expected one message with id 3, got %#v", msgs)
	}
	if msgs[0].Sender.FirstName != "Maria" {
		t.Fatalf("sender not preloaded: %#v", msgs[0].Sender)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}
