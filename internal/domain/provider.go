package domain

// AuthOption is one selectable authentication method inside a provider group.
type AuthOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ProviderGroup bundles the auth methods offered for one AI backend vendor.
// Groups are fetched from the gateway and treated as immutable.
type ProviderGroup struct {
	Value   string       `json:"value"`
	Label   string       `json:"label"`
	Hint    string       `json:"hint"`
	Options []AuthOption `json:"options"`
}

// SetupTokenChoice is the auth choice that takes a pasted setup-token value.
const SetupTokenChoice = "token"

// oauthChoices are auth methods that log in through OAuth or a device flow
// when the gateway starts, so no secret is collected up front.
var oauthChoices = map[string]bool{
	"codex-cli":          true,
	"openai-codex":       true,
	"google-antigravity": true,
	"google-gemini-cli":  true,
	"qwen-portal":        true,
	"github-copilot":     true,
	"copilot-proxy":      true,
}

// IsOAuthChoice reports whether choice authenticates without a secret.
func IsOAuthChoice(choice string) bool {
	return oauthChoices[choice]
}

// OAuthChoices returns the OAuth auth method values.
func OAuthChoices() []string {
	out := make([]string, 0, len(oauthChoices))
	for k := range oauthChoices {
		out = append(out, k)
	}
	return out
}

// FindGroup returns the group whose Value equals value, or nil.
func FindGroup(groups []ProviderGroup, value string) *ProviderGroup {
	for i := range groups {
		if groups[i].Value == value {
			return &groups[i]
		}
	}
	return nil
}
