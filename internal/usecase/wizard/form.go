// Package wizard implements the setup wizard state machine: the step
// navigator, the provider selector and the form the run payload is built from.
package wizard

import (
	"strings"

	"openclaw-setup/internal/domain"
)

// Setup flows understood by the gateway's onboarding command.
const (
	FlowQuickstart = "quickstart"
	FlowAdvanced   = "advanced"
)

// DefaultTailscaleHostname is used when the hostname field is left empty.
const DefaultTailscaleHostname = "openclaw-railway"

// ChannelToggle is a messaging channel with a single bot token.
type ChannelToggle struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// SlackSettings holds the two Slack tokens (Socket Mode needs both).
type SlackSettings struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// TailscaleSettings configures the network overlay sub-call.
type TailscaleSettings struct {
	Enabled  bool   `yaml:"enabled"`
	AuthKey  string `yaml:"auth_key"`
	Hostname string `yaml:"hostname"`
}

// CustomProvider describes an OpenAI-compatible endpoint added next to the
// selected provider.
type CustomProvider struct {
	ID        string `yaml:"id"`
	BaseURL   string `yaml:"base_url"`
	API       string `yaml:"api"`
	APIKeyEnv string `yaml:"api_key_env"`
	ModelID   string `yaml:"model_id"`
}

// Form is every user input the wizard collects.
type Form struct {
	Flow       string            `yaml:"flow"`
	Provider   string            `yaml:"provider"`
	AuthChoice string            `yaml:"auth_choice"`
	AuthSecret string            `yaml:"auth_secret"`
	Telegram   ChannelToggle     `yaml:"telegram"`
	Discord    ChannelToggle     `yaml:"discord"`
	Slack      SlackSettings     `yaml:"slack"`
	Tailscale  TailscaleSettings `yaml:"tailscale"`
	Custom     CustomProvider    `yaml:"custom_provider"`
}

// DefaultForm returns an empty form with the quickstart flow.
func DefaultForm() Form {
	return Form{Flow: FlowQuickstart}
}

// TailscaleHostname returns the trimmed hostname or the default.
func (f Form) TailscaleHostname() string {
	if h := strings.TrimSpace(f.Tailscale.Hostname); h != "" {
		return h
	}
	return DefaultTailscaleHostname
}

// TailscaleRequest builds the configure request. ok is false when Tailscale
// is disabled or no auth key was entered, in which case no call is made.
func (f Form) TailscaleRequest() (req domain.TailscaleConfigureRequest, ok bool) {
	key := strings.TrimSpace(f.Tailscale.AuthKey)
	if !f.Tailscale.Enabled || key == "" {
		return domain.TailscaleConfigureRequest{}, false
	}
	return domain.TailscaleConfigureRequest{AuthKey: key, Hostname: f.TailscaleHostname()}, true
}

// EnabledChannels lists the display names of the toggled-on channels.
func (f Form) EnabledChannels() []string {
	var out []string
	if f.Telegram.Enabled {
		out = append(out, "Telegram")
	}
	if f.Discord.Enabled {
		out = append(out, "Discord")
	}
	if f.Slack.Enabled {
		out = append(out, "Slack")
	}
	return out
}

func trimmed(s string) *string {
	v := strings.TrimSpace(s)
	return &v
}

// BuildPayload assembles the run request body. A disabled channel never
// contributes a field, even when its token is populated.
func BuildPayload(f Form) domain.RunPayload {
	p := domain.RunPayload{
		Flow:       f.Flow,
		AuthChoice: f.AuthChoice,
		AuthSecret: strings.TrimSpace(f.AuthSecret),
	}

	if f.Telegram.Enabled {
		p.TelegramToken = trimmed(f.Telegram.Token)
	}
	if f.Discord.Enabled {
		p.DiscordToken = trimmed(f.Discord.Token)
	}
	if f.Slack.Enabled {
		p.SlackBotToken = trimmed(f.Slack.BotToken)
		p.SlackAppToken = trimmed(f.Slack.AppToken)
	}

	if id := strings.TrimSpace(f.Custom.ID); id != "" {
		p.CustomProviderID = id
		p.CustomProviderBaseURL = strings.TrimSpace(f.Custom.BaseURL)
		p.CustomProviderAPI = strings.TrimSpace(f.Custom.API)
		p.CustomProviderAPIKeyEnv = strings.TrimSpace(f.Custom.APIKeyEnv)
		p.CustomProviderModelID = strings.TrimSpace(f.Custom.ModelID)
	}
	return p
}

// customTemplates pre-fill the custom provider section.
var customTemplates = map[string]CustomProvider{
	"ollama":   {ID: "ollama", BaseURL: "http://localhost:11434/v1", API: "openai-completions", ModelID: "llama3.2"},
	"vllm":     {ID: "vllm", BaseURL: "http://localhost:8000/v1", API: "openai-completions"},
	"lmstudio": {ID: "lmstudio", BaseURL: "http://localhost:1234/v1", API: "openai-completions"},
	"litellm":  {ID: "litellm", BaseURL: "http://localhost:4000/v1", API: "openai-completions"},
	"custom":   {},
}

// CustomTemplateNames returns the template names in display order.
func CustomTemplateNames() []string {
	return []string{"ollama", "vllm", "lmstudio", "litellm", "custom"}
}

// ApplyCustomTemplate overwrites id, base URL, API and model from a named
// template. The API key env var is left alone. Unknown names are ignored.
func (f *Form) ApplyCustomTemplate(name string) bool {
	t, ok := customTemplates[name]
	if !ok {
		return false
	}
	f.Custom.ID = t.ID
	f.Custom.BaseURL = t.BaseURL
	f.Custom.API = t.API
	f.Custom.ModelID = t.ModelID
	return true
}

// ReviewItem is one label/value line of the review summary.
type ReviewItem struct {
	Label string
	Value string
}

// BuildReview snapshots the form into the flat summary shown on the last step.
func BuildReview(f Form, selected *domain.ProviderGroup) []ReviewItem {
	provider := "Not selected"
	if selected != nil {
		provider = selected.Label
	}
	authChoice := f.AuthChoice
	if authChoice == "" {
		authChoice = "-"
	}
	channels := "None"
	if ch := f.EnabledChannels(); len(ch) > 0 {
		channels = strings.Join(ch, ", ")
	}
	tailscale := "Disabled"
	if f.Tailscale.Enabled {
		tailscale = "Enabled"
	}

	items := []ReviewItem{
		{Label: "Provider", Value: provider},
		{Label: "Auth Method", Value: authChoice},
		{Label: "Channels", Value: channels},
		{Label: "Tailscale", Value: tailscale},
		{Label: "Setup Flow", Value: f.Flow},
	}
	if id := strings.TrimSpace(f.Custom.ID); id != "" {
		items = append(items, ReviewItem{Label: "Custom Provider", Value: id})
	}
	return items
}
