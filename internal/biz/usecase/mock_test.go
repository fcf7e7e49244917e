package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// Mock implementations

var jst = time.FixedZone("JST", 9*60*60)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Types: map[string]*domain.CampaignType{
			"alpha": {
				ID:          "alpha",
				DisplayName: "Alpha Cup",
				Templates: map[string]domain.Template{
					"1": {PatternID: "1", Body: "A"},
					"2": {PatternID: "2", Body: "B"},
				},
			},
			"beta": {
				ID:            "beta",
				DisplayName:   "Beta Cup",
				BannerURL:     "https://example.com/beta.png",
				GrantRoleID:   "role-beta",
				AskConditions: true,
				Templates: map[string]domain.Template{
					"1": {PatternID: "1", Body: "Beta rules"},
				},
			},
		},
		Patterns: map[string]domain.Pattern{
			"1": {ID: "1", Label: "Circle", Style: "primary"},
		},
		Messages: domain.Messages{
			Announcement:    "{{.DisplayName}}\n{{.Body}}\n{{.Deadline}}{{if .Conditions}}\n{{.Conditions}}{{end}}",
			Reminder:        "remind {{.DisplayName}} {{.Deadline}}",
			Closing:         "closed {{.DisplayName}}",
			Created:         "created {{.Deadline}}",
			TemplatePrompt:  "pick",
			DeadlinePrompt:  "deadline?",
			ConditionPrompt: "conditions?",
			SkipWords:       []string{"-", "skip", "なし"},
		},
	}
}

type sentMessage struct {
	ChannelID string
	MessageID string
	Out       repo.Outbound
}

type mockPlatformRepo struct {
	mu sync.Mutex

	sent      []sentMessage
	reactions map[string][]string // messageID -> emojis
	nextID    int

	// guildID/userID -> roleIDs
	roles map[string]map[string]bool
	// messageID -> users holding the ack marker
	ackUsers map[string][]string

	grantCalls  int
	revokeCalls int

	sendErr      error
	reactErr     error
	reactionsErr error
	revokeErrFor map[string]error
	guildID      string

	// runs after ReactionUsers has produced its listing
	afterReactionUsers func(messageID string)
}

func newMockPlatformRepo() *mockPlatformRepo {
	return &mockPlatformRepo{
		reactions:    make(map[string][]string),
		roles:        make(map[string]map[string]bool),
		ackUsers:     make(map[string][]string),
		revokeErrFor: make(map[string]error),
		guildID:      "guild-1",
	}
}

func (m *mockPlatformRepo) SendMessage(ctx context.Context, channelID string, out repo.Outbound) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, MessageID: id, Out: out})
	return id, nil
}

func (m *mockPlatformRepo) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reactErr != nil {
		return m.reactErr
	}
	m.reactions[messageID] = append(m.reactions[messageID], emoji)
	return nil
}

func (m *mockPlatformRepo) ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	m.mu.Lock()
	if m.reactionsErr != nil {
		m.mu.Unlock()
		return nil, m.reactionsErr
	}
	users := append([]string(nil), m.ackUsers[messageID]...)
	hook := m.afterReactionUsers
	m.mu.Unlock()

	if hook != nil {
		hook(messageID)
	}
	return users, nil
}

func (m *mockPlatformRepo) ChannelGuild(ctx context.Context, channelID string) (string, error) {
	return m.guildID, nil
}

func (m *mockPlatformRepo) HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[guildID+"/"+userID][roleID], nil
}

func (m *mockPlatformRepo) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grantCalls++
	key := guildID + "/" + userID
	if m.roles[key] == nil {
		m.roles[key] = make(map[string]bool)
	}
	m.roles[key][roleID] = true
	return nil
}

func (m *mockPlatformRepo) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeCalls++
	if err := m.revokeErrFor[userID]; err != nil {
		return err
	}
	delete(m.roles[guildID+"/"+userID], roleID)
	return nil
}

func (m *mockPlatformRepo) RoleHolders(ctx context.Context, guildID, roleID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	prefix := guildID + "/"
	for key, roles := range m.roles {
		if roles[roleID] && len(key) > len(prefix) && key[:len(prefix)] == prefix {
			ids = append(ids, key[len(prefix):])
		}
	}
	return ids, nil
}

func (m *mockPlatformRepo) setRole(userID, roleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.guildID + "/" + userID
	if m.roles[key] == nil {
		m.roles[key] = make(map[string]bool)
	}
	m.roles[key][roleID] = true
}

func (m *mockPlatformRepo) hasRole(userID, roleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[m.guildID+"/"+userID][roleID]
}

func (m *mockPlatformRepo) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type mockDocRepo struct {
	mu      sync.Mutex
	doc     map[string]*domain.Campaign
	saves   int
	loadErr error
	saveErr error
}

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{doc: make(map[string]*domain.Campaign)}
}

func (m *mockDocRepo) Load(ctx context.Context) (map[string]*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]*domain.Campaign, len(m.doc))
	for k, v := range m.doc {
		out[k] = v.Clone()
	}
	return out, nil
}

func (m *mockDocRepo) Save(ctx context.Context, campaigns map[string]*domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = make(map[string]*domain.Campaign, len(campaigns))
	for k, v := range campaigns {
		m.doc[k] = v.Clone()
	}
	return nil
}

func (m *mockDocRepo) Close() error {
	return nil
}

func (m *mockDocRepo) saved(typeID string) *domain.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc[typeID].Clone()
}

type mockResponder struct {
	mu      sync.Mutex
	offers  [][]domain.TemplateOption
	prompts []string
	reports []string

	offerErr error
}

func (m *mockResponder) OfferTemplates(ctx context.Context, flowID, prompt string, options []domain.TemplateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offerErr != nil {
		return m.offerErr
	}
	m.offers = append(m.offers, options)
	return nil
}

func (m *mockResponder) Prompt(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, text)
	return nil
}

func (m *mockResponder) Report(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, text)
	return nil
}

func (m *mockResponder) lastReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return ""
	}
	return m.reports[len(m.reports)-1]
}

var errBoom = errors.New("boom")

// deliver retries until the flow is waiting for the input
func deliver(t *testing.T, inbox *Inbox, in domain.DialogInput) {
	t.Helper()
	require.Eventually(t, func() bool { return inbox.Deliver(in) }, 2*time.Second, time.Millisecond)
}

func chooseTemplate(t *testing.T, inbox *Inbox, flowID, userID, patternID string) {
	t.Helper()
	deliver(t, inbox, domain.DialogInput{Kind: domain.InputTemplateChoice, FlowID: flowID, UserID: userID, Value: patternID})
}

func answer(t *testing.T, inbox *Inbox, channelID, userID, text string) {
	t.Helper()
	deliver(t, inbox, domain.DialogInput{Kind: domain.InputText, ChannelID: channelID, UserID: userID, Value: text})
}
