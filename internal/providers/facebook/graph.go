package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// GraphError es el cuerpo de error del Graph API.
type GraphError struct {
	Status  int
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("facebook graph: %s (%s, code %d, http %d)", e.Message, e.Type, e.Code, e.Status)
}

// HTTPGraph implementa GraphClient sobre HTTP con el access token como bearer.
type HTTPGraph struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient base opcional (tests); el token se agrega con oauth2.Transport.
	HTTPClient *http.Client
}

func (g *HTTPGraph) Me(ctx context.Context, accessToken, fields string) (*Profile, error) {
	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = DefaultGraphURL
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	hc.Timeout = timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/me?"+url.Values{"fields": {fields}}.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var env struct {
			Error GraphError `json:"error"`
		}
		_ = json.Unmarshal(body, &env)
		env.Error.Status = resp.StatusCode
		return nil, &env.Error
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("facebook graph: decode profile: %w", err)
	}
	return &p, nil
}
