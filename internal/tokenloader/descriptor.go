package tokenloader

import "github.com/teemow/gtoken/internal/scopes"

// Input kinds understood by plugin hosts.
const (
	InputMultiline = "multiline"
	InputFile      = "file"
)

// Input names of the component.
const (
	InputScopes           = "scopes"
	InputOAuthCredentials = "oauth_credentials"
	InputTokenFile        = "token_file"
)

// Input declares one typed component input.
type Input struct {
	Name        string
	DisplayName string
	Info        string
	Kind        string
	Required    bool
	FileTypes   []string
	Default     string
}

// Output declares the output slot of the component.
type Output struct {
	Name        string
	DisplayName string
}

// Descriptor is the contract a plugin host needs to present and invoke the
// component.
type Descriptor struct {
	Name          string
	DisplayName   string
	Description   string
	Documentation string
	Icon          string
	Inputs        []Input
	Output        Output
}

// Describe returns the component's host contract.
func Describe() Descriptor {
	return Descriptor{
		Name:          "GoogleOAuthToken",
		DisplayName:   "Google OAuth Token (via token.json)",
		Description:   "Loads Google credentials from a previously generated token.json without opening a browser.",
		Documentation: "https://developers.google.com/identity/protocols/oauth2/native-app",
		Icon:          "Google",
		Inputs: []Input{
			{
				Name:        InputScopes,
				DisplayName: "Scopes",
				Info:        "Comma-separated list of the scopes the pipeline needs.",
				Kind:        InputMultiline,
				Required:    true,
				Default:     scopes.Defaults,
			},
			{
				Name:        InputOAuthCredentials,
				DisplayName: "Credentials File",
				Info:        "OAuth client credentials JSON downloaded from the Google Cloud console.",
				Kind:        InputFile,
				Required:    true,
				FileTypes:   []string{"json"},
			},
			{
				Name:        InputTokenFile,
				DisplayName: "Token File (token.json)",
				Info:        "A previously generated token.json holding an access and refresh token. It is loaded without opening a browser.",
				Kind:        InputFile,
				FileTypes:   []string{"json"},
			},
		},
		Output: Output{Name: "output", DisplayName: "Output"},
	}
}
