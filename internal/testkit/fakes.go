// Package testkit provides in-memory fakes for the entity, AI, content, MCP,
// conversation and permission collaborator interfaces in internal/pluginctx
// (there is no fake AgentService), a recording Sender, plus a harness for driving
// plugin.Manager against synthetic dependency graphs. Grounded on the
// teacher's table-driven, testify-based test style (e.g.
// api/internal/middleware/orgcontext_test.go), adapted from HTTP
// middleware fixtures to plugin-host collaborator fakes.
package testkit

import (
	"context"
	"fmt"
	"sync"
)

// FakeEntityService is an in-memory EntityService keyed by
// "entityType/id".
type FakeEntityService struct {
	mu      sync.Mutex
	data    map[string]map[string]any
	types   map[string]bool
	nextID  int
}

// NewFakeEntityService constructs an empty FakeEntityService.
func NewFakeEntityService() *FakeEntityService {
	return &FakeEntityService{data: make(map[string]map[string]any), types: make(map[string]bool)}
}

func entityKey(entityType, id string) string { return entityType + "/" + id }

func (f *FakeEntityService) Get(ctx context.Context, entityType, id string) (map[string]any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[entityKey(entityType, id)]
	return v, ok, nil
}

func (f *FakeEntityService) Query(ctx context.Context, entityType string, filter map[string]any) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	prefix := entityType + "/"
	for k, v := range f.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *FakeEntityService) Create(ctx context.Context, entityType string, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("%s-%d", entityType, f.nextID)
	f.data[entityKey(entityType, id)] = data
	return id, nil
}

func (f *FakeEntityService) Update(ctx context.Context, entityType, id string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[entityKey(entityType, id)] = data
	return nil
}

func (f *FakeEntityService) Delete(ctx context.Context, entityType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, entityKey(entityType, id))
	return nil
}

func (f *FakeEntityService) RegisterType(ctx context.Context, entityType string, schema, adapter, config any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types[entityType] = true
	return nil
}

// FakeAIService is a scripted AIService: Responses maps a prompt to a
// canned reply, falling back to echoing the prompt.
type FakeAIService struct {
	Responses       map[string]string
	SupportsImages  bool
	ImageResponse   []byte
}

func NewFakeAIService() *FakeAIService {
	return &FakeAIService{Responses: make(map[string]string)}
}

func (f *FakeAIService) Query(ctx context.Context, prompt string) (string, error) {
	if r, ok := f.Responses[prompt]; ok {
		return r, nil
	}
	return "echo: " + prompt, nil
}

func (f *FakeAIService) GenerateContent(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	return f.Query(ctx, prompt)
}

func (f *FakeAIService) GenerateImage(ctx context.Context, prompt string, opts map[string]any) ([]byte, error) {
	return f.ImageResponse, nil
}

func (f *FakeAIService) SupportsImageGeneration() bool { return f.SupportsImages }

// FakeContentService resolves templates from a static map, keyed by
// templateKey.
type FakeContentService struct {
	Templates map[string]string
}

func NewFakeContentService() *FakeContentService {
	return &FakeContentService{Templates: make(map[string]string)}
}

func (f *FakeContentService) Resolve(ctx context.Context, templateKey string, data map[string]any) (string, error) {
	tpl, ok := f.Templates[templateKey]
	if !ok {
		return "", fmt.Errorf("testkit: no template registered for %q", templateKey)
	}
	return tpl, nil
}

func (f *FakeContentService) SupportsTemplate(templateKey string) bool {
	_, ok := f.Templates[templateKey]
	return ok
}

// FakeMCPTransport records every progress notification sent through it.
type FakeMCPTransport struct {
	mu            sync.Mutex
	Notifications []FakeNotification
}

type FakeNotification struct {
	ProgressToken string
	Payload       any
}

func NewFakeMCPTransport() *FakeMCPTransport {
	return &FakeMCPTransport{}
}

func (f *FakeMCPTransport) SendProgress(ctx context.Context, progressToken string, notification any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Notifications = append(f.Notifications, FakeNotification{ProgressToken: progressToken, Payload: notification})
	return nil
}

// FakeConversationStore is an in-memory ConversationStore, one
// conversation per (interfaceType, channelID).
type FakeConversationStore struct {
	mu            sync.Mutex
	byChannel     map[string]string // interfaceType/channelID -> conversationID
	messages      map[string][]FakeMessage
	nextID        int
}

type FakeMessage struct {
	Role     string
	Content  string
	Metadata map[string]any
}

func NewFakeConversationStore() *FakeConversationStore {
	return &FakeConversationStore{
		byChannel: make(map[string]string),
		messages:  make(map[string][]FakeMessage),
	}
}

func (f *FakeConversationStore) Start(ctx context.Context, interfaceType, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := interfaceType + "/" + channelID
	if id, ok := f.byChannel[key]; ok {
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("conv-%d", f.nextID)
	f.byChannel[key] = id
	return id, nil
}

func (f *FakeConversationStore) AddMessage(ctx context.Context, conversationID, role, content string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[conversationID] = append(f.messages[conversationID], FakeMessage{Role: role, Content: content, Metadata: metadata})
	return nil
}

func (f *FakeConversationStore) Messages(ctx context.Context, conversationID string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.messages[conversationID]))
	for _, m := range f.messages[conversationID] {
		out = append(out, map[string]any{"role": m.Role, "content": m.Content, "metadata": m.Metadata})
	}
	return out, nil
}

// FakePermissionService resolves every user to a fixed level, or a
// per-user override.
type FakePermissionService struct {
	Default   string
	Overrides map[string]string
}

func NewFakePermissionService(defaultLevel string) *FakePermissionService {
	return &FakePermissionService{Default: defaultLevel, Overrides: make(map[string]string)}
}

func (f *FakePermissionService) Resolve(ctx context.Context, userID string) (string, error) {
	if lvl, ok := f.Overrides[userID]; ok {
		return lvl, nil
	}
	return f.Default, nil
}

// FakeSender records sent/edited messages instead of delivering them to a
// real chat platform; satisfies progress.Sender and the msginterface
// transport contract.
type FakeSender struct {
	mu             sync.Mutex
	nextID         int
	SupportsEdit   bool
	Sent           []FakeSentMessage
	Edited         []FakeSentMessage
}

type FakeSentMessage struct {
	ChannelID string
	MessageID string
	Text      string
}

func NewFakeSender(supportsEdit bool) *FakeSender {
	return &FakeSender{SupportsEdit: supportsEdit}
}

func (f *FakeSender) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.Sent = append(f.Sent, FakeSentMessage{ChannelID: channelID, MessageID: id, Text: text})
	return id, nil
}

func (f *FakeSender) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edited = append(f.Edited, FakeSentMessage{ChannelID: channelID, MessageID: messageID, Text: text})
	return nil
}

func (f *FakeSender) SupportsMessageEditing() bool { return f.SupportsEdit }
