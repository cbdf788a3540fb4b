package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	gmailAPIBase = "https://gmail.googleapis.com/gmail/v1"

	// refreshMargin is how close to expiry a token may get before execute
	// refreshes it first
	refreshMargin = 60 * time.Second

	defaultMaxResults = 10
	maxMaxResults     = 100
)

var gmailScopes = []string{"https://www.googleapis.com/auth/gmail.readonly"}

// Gmail action names
const (
	ActionListEmails = "list_emails"
	ActionSearch     = "search"
	ActionGetEmail   = "get_email"
	ActionGetThreads = "get_threads"
)

// GmailProvider implements the Provider capability set for Gmail
type GmailProvider struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	// Overridable for tests
	endpoint oauth2.Endpoint
	apiBase  string
}

// NewGmailProvider creates a Gmail provider from config
func NewGmailProvider(cfg types.GoogleOAuthConfig, httpClient *http.Client) *GmailProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GmailProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   httpClient,
		endpoint:     google.Endpoint,
		apiBase:      gmailAPIBase,
	}
}

func (g *GmailProvider) Type() types.ProviderType {
	return types.ProviderGmail
}

func (g *GmailProvider) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		ProviderType: types.ProviderGmail,
		Name:         "Gmail",
		Description:  "Read and search your Gmail inbox",
	}
}

func (g *GmailProvider) IsConfigured() bool {
	return g.clientID != "" && g.clientSecret != ""
}

func (g *GmailProvider) oauthConfig(callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       gmailScopes,
		Endpoint:     g.endpoint,
	}
}

// AuthorizeURL builds the Google consent URL. Offline access and a forced
// consent prompt ensure a refresh token is issued even on re-authorization.
func (g *GmailProvider) AuthorizeURL(state, callbackURL string) (string, error) {
	if !g.IsConfigured() {
		return "", errors.New("google oauth credentials not configured")
	}

	return g.oauthConfig(callbackURL).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (g *GmailProvider) Exchange(ctx context.Context, code, callbackURL string) (*types.TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.oauthConfig(callbackURL).Exchange(ctx, code)
	if err != nil {
		// The oauth2 error may embed the upstream response body; log it
		// server-side and surface only the sanitized sentinel.
		log.Warn().Err(err).Str("provider", "gmail").Msg("code exchange failed")
		return nil, types.ErrTokenExchange
	}

	bundle := &types.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scopes:       gmailScopes,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		bundle.ExpiresAt = &expiry
	}
	return bundle, nil
}

func (g *GmailProvider) NeedsRefresh(tok *types.TokenBundle, now time.Time) bool {
	if tok == nil || tok.ExpiresAt == nil {
		return false
	}
	return tok.ExpiresAt.Sub(now) < refreshMargin
}

// Refresh calls the token endpoint directly so the response can be classified:
// a rejected refresh token is terminal, anything else is transient.
func (g *GmailProvider) Refresh(ctx context.Context, refreshToken string) (*types.TokenBundle, error) {
	if refreshToken == "" {
		return nil, types.NewRefreshError(true, errors.New("no refresh token"))
	}

	data := url.Values{
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, types.NewRefreshError(false, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, types.NewRefreshError(false, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var oauthErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &oauthErr)
		// invalid_grant means the refresh token is revoked or stale; the body
		// itself never leaves this boundary
		terminal := oauthErr.Error == "invalid_grant" ||
			resp.StatusCode == http.StatusBadRequest ||
			resp.StatusCode == http.StatusUnauthorized
		log.Warn().
			Int("status", resp.StatusCode).
			Str("oauth_error", oauthErr.Error).
			Bool("terminal", terminal).
			Str("provider", "gmail").
			Msg("token refresh rejected")
		return nil, types.NewRefreshError(terminal, fmt.Errorf("refresh failed: status %d", resp.StatusCode))
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, types.NewRefreshError(false, fmt.Errorf("parse refresh response: %w", err))
	}

	expiry := time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	bundle := &types.TokenBundle{
		AccessToken:  result.AccessToken,
		RefreshToken: refreshToken,
		Scopes:       gmailScopes,
		ExpiresAt:    &expiry,
	}
	// Google occasionally rotates the refresh token; keep the newest copy
	if result.RefreshToken != "" {
		bundle.RefreshToken = result.RefreshToken
	}
	return bundle, nil
}

func (g *GmailProvider) Execute(ctx context.Context, tok *types.TokenBundle, action string, params map[string]any) (any, error) {
	switch action {
	case ActionListEmails, ActionSearch:
		return g.listEmails(ctx, tok.AccessToken, params)
	case ActionGetEmail:
		messageID, ok := stringParam(params, "message_id")
		if !ok {
			return nil, &types.ErrInvalidParams{Reason: "message_id is required"}
		}
		return g.getEmail(ctx, tok.AccessToken, messageID)
	case ActionGetThreads:
		threadID, ok := stringParam(params, "thread_id")
		if !ok {
			return nil, &types.ErrInvalidParams{Reason: "thread_id is required"}
		}
		var thread map[string]any
		if err := g.request(ctx, tok.AccessToken, "/users/me/threads/"+url.PathEscape(threadID), &thread); err != nil {
			return nil, err
		}
		return thread, nil
	default:
		return nil, &types.ErrUnsupportedAction{ProviderType: string(types.ProviderGmail), Action: action}
	}
}

func (g *GmailProvider) listEmails(ctx context.Context, accessToken string, params map[string]any) (*types.EmailListing, error) {
	maxResults := defaultMaxResults
	if v, ok := intParam(params, "max_results"); ok {
		if v < 1 || v > maxMaxResults {
			return nil, &types.ErrInvalidParams{Reason: "max_results must be between 1 and 100"}
		}
		maxResults = v
	}

	query := url.Values{"maxResults": {fmt.Sprint(maxResults)}}
	if q, ok := stringParam(params, "query"); ok {
		query.Set("q", q)
	}
	if label, ok := stringParam(params, "label"); ok {
		query.Set("labelIds", label)
	}
	if pageToken, ok := stringParam(params, "page_token"); ok {
		query.Set("pageToken", pageToken)
	}

	var list struct {
		Messages []struct {
			Id string `json:"id"`
		} `json:"messages"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := g.request(ctx, accessToken, "/users/me/messages?"+query.Encode(), &list); err != nil {
		return nil, err
	}

	listing := &types.EmailListing{
		Messages:      make([]types.EmailMessage, 0, len(list.Messages)),
		NextPageToken: list.NextPageToken,
	}
	for _, m := range list.Messages {
		email, err := g.getEmail(ctx, accessToken, m.Id)
		if err != nil {
			return nil, err
		}
		listing.Messages = append(listing.Messages, *email)
	}
	return listing, nil
}

func (g *GmailProvider) getEmail(ctx context.Context, accessToken, messageID string) (*types.EmailMessage, error) {
	var msg struct {
		Id       string   `json:"id"`
		ThreadId string   `json:"threadId"`
		Snippet  string   `json:"snippet"`
		LabelIds []string `json:"labelIds"`
		Payload  gmailPart `json:"payload"`
	}
	path := fmt.Sprintf("/users/me/messages/%s?format=full", url.PathEscape(messageID))
	if err := g.request(ctx, accessToken, path, &msg); err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}

	return &types.EmailMessage{
		Id:       msg.Id,
		ThreadId: msg.ThreadId,
		Subject:  headers["subject"],
		From:     headers["from"],
		To:       headers["to"],
		Date:     headers["date"],
		Snippet:  msg.Snippet,
		Body:     extractBody(&msg.Payload),
		Labels:   msg.LabelIds,
	}, nil
}

// request performs an authenticated GET against the Gmail API. Non-2xx
// responses become sanitized upstream errors; the body stays server-side.
func (g *GmailProvider) request(ctx context.Context, accessToken, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gmail API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Debug().Int("status", resp.StatusCode).Str("path", path).Bytes("body", body).Msg("gmail API error")
		return &types.ErrUpstreamAction{ProviderType: string(types.ProviderGmail), StatusCode: resp.StatusCode}
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

// extractBody walks the MIME tree preferring text/plain over text/html
func extractBody(p *gmailPart) string {
	if p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}

	var html string
	for i := range p.Parts {
		part := &p.Parts[i]
		switch {
		case part.MimeType == "text/plain" && part.Body.Data != "":
			return decodeBody(part.Body.Data)
		case part.MimeType == "text/html" && part.Body.Data != "":
			html = decodeBody(part.Body.Data)
		case len(part.Parts) > 0:
			if nested := extractBody(part); nested != "" {
				return nested
			}
		}
	}
	return html
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key].(string)
	return v, ok && v != ""
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case float64: // JSON numbers decode as float64
		return int(v), true
	default:
		return 0, false
	}
}
