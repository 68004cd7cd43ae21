package relay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/store"
)

const (
	testTenantID = int64(1000)
	testGroupID  = int64(-1001777)
	testUserID   = int64(555)
)

func testTenant() store.Tenant {
	return store.Tenant{
		ID:       testTenantID,
		OwnerID:  42,
		GroupID:  testGroupID,
		Token:    "1000:AAtesttoken",
		Username: "tenant_bot",
		IsActive: true,
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, ledger *store.UserLedger) *store.User {
	t.Helper()
	user, err := ledger.CreateOrUpdate(context.Background(), testTenantID, testUserID, "alice", "Alice", "en")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func privateMsg(msgID int, text string) telego.Message {
	return telego.Message{
		MessageID: msgID,
		Chat:      telego.Chat{ID: testUserID, Type: telego.ChatTypePrivate},
		From:      &telego.User{ID: testUserID, FirstName: "Alice", Username: "alice", LanguageCode: "en"},
		Text:      text,
	}
}

func groupMsg(msgID, threadID int, text string) telego.Message {
	return telego.Message{
		MessageID:       msgID,
		MessageThreadID: threadID,
		Chat:            telego.Chat{ID: testGroupID, Type: telego.ChatTypeSupergroup},
		From:            &telego.User{ID: 9001, FirstName: "Operator"},
		Text:            text,
	}
}

func userEvent(api *fakeAPI, user *store.User, msgs ...telego.Message) *Event {
	return &Event{
		Direction: UserToGroup,
		Tenant:    testTenant(),
		User:      user,
		Messages:  msgs,
		Lang:      "en",
		API:       api,
		RequestID: "req-1",
	}
}

func groupEvent(api *fakeAPI, user *store.User, msgs ...telego.Message) *Event {
	ev := userEvent(api, user, msgs...)
	ev.Direction = GroupToUser
	return ev
}
