package relay

import (
	"context"
	"sync"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
)

func threadNotFoundErr() error {
	return &telegoapi.Error{ErrorCode: 400, Description: "Bad Request: message thread not found"}
}

func blockedErr() error {
	return &telegoapi.Error{ErrorCode: 403, Description: "Forbidden: bot was blocked by the user"}
}

func unauthorizedErr() error {
	return &telegoapi.Error{ErrorCode: 401, Description: "Unauthorized"}
}

type apiCall struct {
	method string
	params any
}

// fakeAPI records Bot API calls and replies from canned state. Errors
// for copy calls are popped in order, so a test can fail the first
// attempt and let the retry succeed.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall

	me       *telego.User
	getMeErr error

	copyErrs  []error
	sendErr   error
	topicErr  error
	deleteErr error

	nextThreadID  int
	nextMessageID int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		me:            &telego.User{ID: 1000, IsBot: true, FirstName: "Tenant", Username: "tenant_bot"},
		nextThreadID:  100,
		nextMessageID: 5000,
	}
}

func (f *fakeAPI) record(method string, params any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) popCopyErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.copyErrs) == 0 {
		return nil
	}
	err := f.copyErrs[0]
	f.copyErrs = f.copyErrs[1:]
	return err
}

func (f *fakeAPI) GetMe(_ context.Context) (*telego.User, error) {
	f.record("GetMe", nil)
	if f.getMeErr != nil {
		return nil, f.getMeErr
	}
	return f.me, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.record("SendMessage", params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.mu.Lock()
	f.nextMessageID++
	id := f.nextMessageID
	f.mu.Unlock()
	return &telego.Message{
		MessageID: id,
		Chat:      telego.Chat{ID: params.ChatID.ID},
		Text:      params.Text,
	}, nil
}

func (f *fakeAPI) CopyMessage(_ context.Context, params *telego.CopyMessageParams) (*telego.MessageID, error) {
	f.record("CopyMessage", params)
	if err := f.popCopyErr(); err != nil {
		return nil, err
	}
	return &telego.MessageID{MessageID: params.MessageID}, nil
}

func (f *fakeAPI) CopyMessages(_ context.Context, params *telego.CopyMessagesParams) ([]telego.MessageID, error) {
	f.record("CopyMessages", params)
	if err := f.popCopyErr(); err != nil {
		return nil, err
	}
	ids := make([]telego.MessageID, 0, len(params.MessageIDs))
	for _, id := range params.MessageIDs {
		ids = append(ids, telego.MessageID{MessageID: id})
	}
	return ids, nil
}

func (f *fakeAPI) CreateForumTopic(_ context.Context, params *telego.CreateForumTopicParams) (*telego.ForumTopic, error) {
	f.record("CreateForumTopic", params)
	if f.topicErr != nil {
		return nil, f.topicErr
	}
	f.mu.Lock()
	f.nextThreadID++
	id := f.nextThreadID
	f.mu.Unlock()
	return &telego.ForumTopic{MessageThreadID: id, Name: params.Name}, nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, params *telego.DeleteMessageParams) error {
	f.record("DeleteMessage", params)
	return f.deleteErr
}

func (f *fakeAPI) PinChatMessage(_ context.Context, params *telego.PinChatMessageParams) error {
	f.record("PinChatMessage", params)
	return nil
}

func (f *fakeAPI) UnpinChatMessage(_ context.Context, params *telego.UnpinChatMessageParams) error {
	f.record("UnpinChatMessage", params)
	return nil
}

func (f *fakeAPI) SetWebhook(_ context.Context, params *telego.SetWebhookParams) error {
	f.record("SetWebhook", params)
	return nil
}

func (f *fakeAPI) DeleteWebhook(_ context.Context, params *telego.DeleteWebhookParams) error {
	f.record("DeleteWebhook", params)
	return nil
}

func (f *fakeAPI) SetMyCommands(_ context.Context, params *telego.SetMyCommandsParams) error {
	f.record("SetMyCommands", params)
	return nil
}

func (f *fakeAPI) DeleteMyCommands(_ context.Context, params *telego.DeleteMyCommandsParams) error {
	f.record("DeleteMyCommands", params)
	return nil
}
