package conf

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

// CatalogConfig is the campaign catalog as loaded from YAML
type CatalogConfig struct {
	Messages MessagesConfig           `yaml:"messages"`
	Patterns map[string]PatternConfig `yaml:"patterns"`
	Types    []TypeConfig             `yaml:"types"`
}

// MessagesConfig contains user-facing texts
type MessagesConfig struct {
	Announcement    string   `yaml:"announcement"`
	Reminder        string   `yaml:"reminder"`
	Closing         string   `yaml:"closing"`
	Created         string   `yaml:"created"`
	TemplatePrompt  string   `yaml:"template_prompt"`
	DeadlinePrompt  string   `yaml:"deadline_prompt"`
	ConditionPrompt string   `yaml:"condition_prompt"`
	SkipWords       []string `yaml:"skip_words"`
}

// PatternConfig describes the button offered for a pattern id
type PatternConfig struct {
	Label string `yaml:"label"`
	Style string `yaml:"style"`
}

// TypeConfig is one campaign type
type TypeConfig struct {
	ID            string            `yaml:"id"`
	DisplayName   string            `yaml:"display_name"`
	BannerURL     string            `yaml:"banner_url"`
	GrantRoleID   string            `yaml:"grant_role_id"`
	GrantRoleEnv  string            `yaml:"grant_role_env"` // env var holding the role id
	AskConditions *bool             `yaml:"ask_conditions"` // default true
	Templates     map[string]string `yaml:"templates"`      // pattern id -> body
}

// slash command name rules
var typeIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// LoadCatalog loads the campaign catalog from YAML, falling back to the
// built-in catalog when no file is found. Grant role ids are resolved from
// the environment through getenv.
func LoadCatalog(configPath string, getenv func(string) string, log *slog.Logger) (*domain.Catalog, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/campaigns.yaml",
			"/etc/recruit-bot/campaigns.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "campaigns.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data, loadedPath = b, p
			break
		}
	}

	var config *CatalogConfig
	if data == nil {
		if configPath != "" {
			return nil, errors.Newf("catalog %s not found", configPath)
		}
		log.Info("no campaigns.yaml found, using built-in catalog")
		config = DefaultCatalogConfig()
	} else {
		log.Info("loading catalog", "path", loadedPath)
		config = &CatalogConfig{}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "parse %s", loadedPath)
		}
		config.fillDefaults()
	}

	return config.ToCatalog(getenv)
}

// fillDefaults fills in default values for empty fields
func (c *CatalogConfig) fillDefaults() {
	defaults := DefaultCatalogConfig()

	if c.Messages.Announcement == "" {
		c.Messages.Announcement = defaults.Messages.Announcement
	}
	if c.Messages.Reminder == "" {
		c.Messages.Reminder = defaults.Messages.Reminder
	}
	if c.Messages.Closing == "" {
		c.Messages.Closing = defaults.Messages.Closing
	}
	if c.Messages.Created == "" {
		c.Messages.Created = defaults.Messages.Created
	}
	if c.Messages.TemplatePrompt == "" {
		c.Messages.TemplatePrompt = defaults.Messages.TemplatePrompt
	}
	if c.Messages.DeadlinePrompt == "" {
		c.Messages.DeadlinePrompt = defaults.Messages.DeadlinePrompt
	}
	if c.Messages.ConditionPrompt == "" {
		c.Messages.ConditionPrompt = defaults.Messages.ConditionPrompt
	}
	if len(c.Messages.SkipWords) == 0 {
		c.Messages.SkipWords = defaults.Messages.SkipWords
	}

	if c.Patterns == nil {
		c.Patterns = defaults.Patterns
	}
	if len(c.Types) == 0 {
		c.Types = defaults.Types
	}
}

// ToCatalog validates the configuration and converts it to a domain catalog
func (c *CatalogConfig) ToCatalog(getenv func(string) string) (*domain.Catalog, error) {
	catalog := &domain.Catalog{
		Types:    make(map[string]*domain.CampaignType, len(c.Types)),
		Patterns: make(map[string]domain.Pattern, len(c.Patterns)),
		Messages: domain.Messages{
			Announcement:    c.Messages.Announcement,
			Reminder:        c.Messages.Reminder,
			Closing:         c.Messages.Closing,
			Created:         c.Messages.Created,
			TemplatePrompt:  c.Messages.TemplatePrompt,
			DeadlinePrompt:  c.Messages.DeadlinePrompt,
			ConditionPrompt: c.Messages.ConditionPrompt,
			SkipWords:       c.Messages.SkipWords,
		},
	}

	for id, p := range c.Patterns {
		catalog.Patterns[id] = domain.Pattern{ID: id, Label: p.Label, Style: p.Style}
	}

	for _, tc := range c.Types {
		if !typeIDPattern.MatchString(tc.ID) {
			return nil, &ConfigError{Field: "types.id", Message: "invalid campaign type id " + tc.ID}
		}
		if _, dup := catalog.Types[tc.ID]; dup {
			return nil, &ConfigError{Field: "types.id", Message: "duplicate campaign type id " + tc.ID}
		}

		t := &domain.CampaignType{
			ID:            tc.ID,
			DisplayName:   tc.DisplayName,
			BannerURL:     tc.BannerURL,
			GrantRoleID:   tc.GrantRoleID,
			AskConditions: tc.AskConditions == nil || *tc.AskConditions,
			Templates:     make(map[string]domain.Template, len(tc.Templates)),
		}
		if t.DisplayName == "" {
			t.DisplayName = tc.ID
		}
		if tc.GrantRoleEnv != "" {
			if v := getenv(tc.GrantRoleEnv); v != "" {
				t.GrantRoleID = v
			}
		}
		for patternID, body := range tc.Templates {
			t.Templates[patternID] = domain.Template{PatternID: patternID, Body: body}
		}
		catalog.Types[tc.ID] = t
	}

	return catalog, nil
}

// DefaultCatalogConfig returns the built-in catalog
func DefaultCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		Messages: MessagesConfig{
			Announcement: `📢 ボス！　{{.DisplayName}} の募集案内が来ました！

{{.Body}}

締切: {{.Deadline}}
{{- if .Conditions}}

🎮 レギュレーション
{{.Conditions}}
{{- end}}

参加してくださるトレーナーの皆様は✅リアクションお願いします！`,
			Reminder: `⏰ ボス！{{.DisplayName}} の締切が近づいているであります！（締切: {{.Deadline}}）
参加表明まだの方はお急ぎください！`,
			Closing: `🚨 ボス！{{.DisplayName}} の参加募集は終了であります！`,
			Created: `✅ 募集メッセージを作成しました
(締切: {{.Deadline}}{{if .Conditions}}, 条件: {{.Conditions}}{{end}})`,
			TemplatePrompt:  "①使用するテンプレートを選んでください",
			DeadlinePrompt:  "②締切日を入力してください (YYYY-MM-DD) 例: 2025-09-20",
			ConditionPrompt: "③ゲーム条件を入力してください（不要なら「-」）例: レース条件/人数/予選日程",
			SkipWords:       []string{"-", "skip", "なし"},
		},
		Patterns: map[string]PatternConfig{
			"1": {Label: "サークルイベント", Style: "primary"},
			"2": {Label: "最決チャンミ", Style: "secondary"},
			"3": {Label: "最決LOH", Style: "success"},
			"4": {Label: "外部大会", Style: "danger"},
		},
		Types: []TypeConfig{
			{
				ID:          "saiketu",
				DisplayName: "最強決定戦",
				BannerURL:   "https://cdn.discordapp.com/attachments/1207888867772858459/1414753471651119135/1f9164eaddeac575.png",
				Templates: map[string]string{
					"2": "・1人3ウマ娘　9人建て　予選(1日3，4レースを数日間)→準決勝→決勝\n・育成締切日は予選開始前日23:59とし、個体変更は不可です。\n・決勝戦はSDG's CUP、えすあーる杯と同日です。",
					"3": "・1レース12頭立て　トレーナー2人（各3ウマ娘）+モブ6人\n・予選総当たり→準決勝（参加人数次第）→決勝\n・1レースごとに順位によりポイントを付与、獲得合計ポイントにより勝敗を決します。\n・予選は勝利数により順位決定、並んだ場合は予選での直接対決の結果を参照します。\n・個体締切は予選開始の1日前、予選開始以降、キャラの差し替えは禁止です。",
				},
			},
			{
				ID:           "sdgscup",
				DisplayName:  "SDG's CUP",
				BannerURL:    "https://cdn.discordapp.com/attachments/1207888498942677003/1414751719908442233/SDGsCUP.png",
				GrantRoleEnv: "SDG_ROLE_ID",
				Templates: map[string]string{
					"1": "・1人1ウマ娘一発勝負",
				},
			},
			{
				ID:           "srhai",
				DisplayName:  "えすあーる杯",
				BannerURL:    "https://cdn.discordapp.com/attachments/1214370384854388837/1414752832980127745/f4f69879c3f7af96.png",
				GrantRoleEnv: "SR_ROLE_ID",
				Templates: map[string]string{
					"2": "・1人1ウマ娘一発勝負\n・自前はR・SRのみ、フレ枠SSR可\n・定員9名",
					"3": "・1人1ウマ娘一発勝負\n・自前はR・SRのみ、フレ枠SSR可\n・定員12名",
				},
			},
			{
				ID:          "satai",
				DisplayName: "サークル対抗戦",
				Templates: map[string]string{
					"4": "※サークル対抗戦は、開催日の昼～夜にかけてリアルタイムで進行するであります。\n開催日は連絡が取れる態勢、ウマ娘を開ける環境を整えていただきますようご協力お願いします！\n\n選抜戦ルール\nチャンミ→1着回数多い人から抜け、並んだ場合はサドンデス\nLOH→獲得pt多い順",
				},
			},
			{
				ID:          "jewelry",
				DisplayName: "ジュエリーカップ",
				Templates: map[string]string{
					"4": "選抜戦ルール\n1着回数多い人から抜け、並んだ場合はサドンデス",
				},
			},
			{
				ID:          "scenario",
				DisplayName: "シナリオ対抗戦",
				Templates: map[string]string{
					"4": "選抜戦ルール\n1着回数多い人から抜け、並んだ場合はサドンデス",
				},
			},
		},
	}
}
