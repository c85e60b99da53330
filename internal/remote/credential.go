package remote

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/Azure/go-ntlmssp"
	"golang.org/x/oauth2"

	"testplan/internal/api"
)

// AuthScheme is the authentication method derived from a token.
type AuthScheme string

const (
	AuthNTLM AuthScheme = "ntlm"
	AuthPAT  AuthScheme = "pat"
)

// Credential is a parsed request token.
type Credential struct {
	Scheme   AuthScheme
	Username string
	Password string
	Token    string
}

// ParseCredential interprets a token. "user:password" and
// "DOMAIN\user:password" select NTLM; ":PAT" or a bare token select personal
// access token authentication.
func ParseCredential(token string) (Credential, error) {
	if strings.TrimSpace(token) == "" {
		return Credential{}, api.InvalidRequestf("token cannot be empty")
	}

	if strings.HasPrefix(token, ":") {
		pat := token[1:]
		if strings.TrimSpace(pat) == "" {
			return Credential{}, api.InvalidRequestf("personal access token cannot be empty")
		}
		return Credential{Scheme: AuthPAT, Token: pat}, nil
	}

	if user, pass, ok := strings.Cut(token, ":"); ok {
		if strings.TrimSpace(user) == "" {
			return Credential{}, api.InvalidRequestf("username cannot be empty in NTLM token")
		}
		if strings.TrimSpace(pass) == "" {
			return Credential{}, api.InvalidRequestf("password cannot be empty in NTLM token")
		}
		return Credential{Scheme: AuthNTLM, Username: user, Password: pass}, nil
	}

	return Credential{Scheme: AuthPAT, Token: strings.TrimSpace(token)}, nil
}

// String never includes secrets.
func (c Credential) String() string {
	if c.Scheme == AuthNTLM {
		return "ntlm:" + c.Username
	}
	return "pat:****"
}

// Transport wraps base with the authentication for this credential.
func (c Credential) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	switch c.Scheme {
	case AuthNTLM:
		return &basicAuthTransport{
			username: c.Username,
			password: c.Password,
			next:     ntlmssp.Negotiator{RoundTripper: base},
		}
	default:
		// The service expects PATs as basic auth with an empty user name.
		encoded := base64.StdEncoding.EncodeToString([]byte(":" + c.Token))
		return &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: encoded, TokenType: "Basic"}),
			Base:   base,
		}
	}
}

// basicAuthTransport hands the user name and password to the NTLM negotiator,
// which reads them from the request's basic auth header.
type basicAuthTransport struct {
	username string
	password string
	next     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(r)
}
