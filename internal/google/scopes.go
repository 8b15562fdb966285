package google

import (
	oauth2v2 "google.golang.org/api/oauth2/v2"
)

// DefaultScopes are requested by the token generator when no scopes are
// configured.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive",
}

// UserinfoEmailScope grants access to the account email. Without it the
// userinfo lookup fails and the token file is written without an account.
const UserinfoEmailScope = oauth2v2.UserinfoEmailScope
