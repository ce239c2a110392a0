package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lusotown/community-chat/models"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		content string
		want    []string
	}{
		{"Olá @maria, tudo bem?", []string{"maria"}},
		// \w 会把 joão 切成 jo，这里必须整词拿到
		{"@joão e @maria vêm ao fado?", []string{"joão", "maria"}},
		{"sem menções aqui", []string{}},
		{"ping @user_1!", []string{"user_1"}},
	}
	for _, c := range cases {
		got := ExtractMentions(c.content)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("ExtractMentions(%q) = %v, want %v", c.content, got, c.want)
		}
	}
}

func TestMessageService_DeleteMessage(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	// 谓词里带作者校验，内容换成占位符
	mock.ExpectExec("UPDATE `lt_message` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 发通知前查消息所在房间
	mock.ExpectQuery("SELECT id, room_id FROM `lt_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow(uint64(3), uint64(7)))

	if err := ms.DeleteMessage(3, 42); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_DeleteMessage_NotAuthor(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	// 零行命中后归因：消息存在 => 不是作者
	mock.ExpectExec("UPDATE `lt_message` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `lt_message`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(1)))

	if err := ms.DeleteMessage(3, 99); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_DeleteMessage_NotFound(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	mock.ExpectExec("UPDATE `lt_message` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `lt_message`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(0)))

	if err := ms.DeleteMessage(404, 42); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_SendMessage_NotMember(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `lt_room_member`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(0)))

	if _, err := ms.SendMessage(7, 42, "olá", "", nil, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_AddReaction(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	mock.ExpectQuery("SELECT id, room_id FROM `lt_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow(uint64(3), uint64(7)))
	// 唯一键冲突走 DoNothing，0 行也算成功
	mock.ExpectExec("INSERT INTO `lt_message_reaction`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := ms.AddReaction(3, 42, "🎉"); err != nil {
		t.Fatalf("AddReaction: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_AddReaction_MessageGone(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	mock.ExpectQuery("SELECT id, room_id FROM `lt_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}))

	if err := ms.AddReaction(404, 42, "🎉"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_PinMessage_RequiresModerator(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(newTestService(gormDB))

	mock.ExpectQuery("SELECT id, room_id FROM `lt_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow(uint64(3), uint64(7)))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `lt_room_member`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(int64(0)))

	if err := ms.PinMessage(3, 42); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestToMessageListItemDTO_DecodesJSONColumns(t *testing.T) {
	m := &models.Message{
		ID:          3,
		MessageUUID: "u-3",
		RoomID:      7,
		SenderID:    42,
		Type:        models.MessageTypeText,
		Content:     "olá @maria",
		Mentions:    []byte(`["maria"]`),
		Attachments: []byte(`[{"id":"a1","type":"image","url":"http://img"}]`),
		Sender:      models.Profile{ID: 42, FirstName: "Maria", LastName: "Silva"},
	}
	dto := toMessageListItemDTO(m)
	if dto.Sender == nil || dto.Sender.DisplayName != "Maria Silva" {
		t.Fatalf("sender projection wrong: %#v", dto.Sender)
	}
	if len(dto.Mentions) != 1 || dto.Mentions[0] != "maria" {
		t.Fatalf("mentions not decoded: %#v", dto.Mentions)
	}
	if len(dto.Attachments) != 1 || dto.Attachments[0].URL != "http://img" {
		t.Fatalf("attachments not decoded: %#v", dto.Attachments)
	}
}
