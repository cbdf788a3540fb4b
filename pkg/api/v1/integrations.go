package apiv1

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/integrations"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/providers"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

// EmailAnnotator optionally enriches listed emails, e.g. with AI summaries
type EmailAnnotator interface {
	Annotate(ctx context.Context, emails []types.EmailMessage)
}

type IntegrationsGroup struct {
	routerGroup *echo.Group
	manager     *integrations.Manager
	annotator   EmailAnnotator
}

type ConnectRequest struct {
	ProviderType string `json:"provider_type"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type ExecuteRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

func NewIntegrationsGroup(g *echo.Group, manager *integrations.Manager, annotator EmailAnnotator) *IntegrationsGroup {
	group := &IntegrationsGroup{routerGroup: g, manager: manager, annotator: annotator}

	g.GET("/available", auth.WithAuth(group.Available))
	g.POST("/connect", auth.WithAuth(group.Connect))
	g.GET("/callback", group.Callback) // owner comes from the state record
	g.GET("", auth.WithAuth(group.List))
	g.DELETE("/:id", auth.WithAuth(group.Disconnect))
	g.POST("/:id/execute", auth.WithAuth(group.Execute))
	g.GET("/:id/emails", auth.WithAuth(group.Emails))

	return group
}

// Available lists the providers users can connect
func (g *IntegrationsGroup) Available(c echo.Context) error {
	return SuccessResponse(c, g.manager.AvailableProviders())
}

// Connect starts an OAuth flow and returns the consent URL
func (g *IntegrationsGroup) Connect(c echo.Context) error {
	var req ConnectRequest
	if err := c.Bind(&req); err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ProviderType == "" {
		return ErrorResponse(c, http.StatusBadRequest, "provider_type is required")
	}

	ctx := c.Request().Context()
	result, err := g.manager.Connect(ctx, auth.UserId(ctx), types.ProviderType(req.ProviderType), req.RedirectURI)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, result)
}

// Callback completes the OAuth flow. The provider redirects the user's
// browser here; identity is carried by the single-use state token. When the
// flow recorded a redirect URI the browser is sent back there with the
// outcome appended as a query parameter, so browser-driven flows never
// dead-end on a JSON page.
func (g *IntegrationsGroup) Callback(c echo.Context) error {
	state := c.QueryParam("state")
	code := c.QueryParam("code")
	errParam := c.QueryParam("error")

	if state == "" {
		return ErrorResponse(c, http.StatusBadRequest, "state is required")
	}

	ctx := c.Request().Context()

	if errParam != "" {
		if redirectURI := g.manager.AbortCallback(ctx, state); redirectURI != "" {
			return redirectWithOutcome(c, redirectURI, "error", "authorization_denied")
		}
		return ErrorResponse(c, http.StatusBadRequest, "authorization denied: "+errParam)
	}
	if code == "" {
		return ErrorResponse(c, http.StatusBadRequest, "code is required")
	}

	integration, redirectURI, err := g.manager.HandleCallback(ctx, state, code)
	if err != nil {
		if redirectURI != "" {
			return redirectWithOutcome(c, redirectURI, "error", callbackErrorCode(err))
		}
		return DomainErrorResponse(c, err)
	}

	if redirectURI != "" {
		return redirectWithOutcome(c, redirectURI, "integration", "success")
	}
	return SuccessResponse(c, integration)
}

// List returns the caller's integrations, never including token material
func (g *IntegrationsGroup) List(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := g.manager.List(ctx, auth.UserId(ctx))
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	if list == nil {
		list = []types.Integration{}
	}
	return SuccessResponse(c, list)
}

// Disconnect removes the integration's tokens
func (g *IntegrationsGroup) Disconnect(c echo.Context) error {
	ctx := c.Request().Context()
	if err := g.manager.Disconnect(ctx, auth.UserId(ctx), c.Param("id")); err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, map[string]string{"status": "disconnected"})
}

// Execute runs a provider action on behalf of the caller
func (g *IntegrationsGroup) Execute(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Action == "" {
		return ErrorResponse(c, http.StatusBadRequest, "action is required")
	}

	ctx := c.Request().Context()
	result, err := g.manager.Execute(ctx, auth.UserId(ctx), c.Param("id"), req.Action, req.Params)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, result)
}

// Emails lists the integration's messages with optional query, label, and
// pagination filters. With summarize=true each message is annotated with a
// short summary when the annotator is configured.
func (g *IntegrationsGroup) Emails(c echo.Context) error {
	params := map[string]any{}
	if q := c.QueryParam("query"); q != "" {
		params["query"] = q
	}
	if label := c.QueryParam("label"); label != "" {
		params["label"] = label
	}
	if pageToken := c.QueryParam("page_token"); pageToken != "" {
		params["page_token"] = pageToken
	}
	if raw := c.QueryParam("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ErrorResponse(c, http.StatusBadRequest, "max_results must be an integer")
		}
		params["max_results"] = n
	}

	ctx := c.Request().Context()
	result, err := g.manager.Execute(ctx, auth.UserId(ctx), c.Param("id"), providers.ActionListEmails, params)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	listing, ok := result.(*types.EmailListing)
	if !ok {
		return SuccessResponse(c, result)
	}

	if summarize, _ := strconv.ParseBool(c.QueryParam("summarize")); summarize && g.annotator != nil {
		g.annotator.Annotate(ctx, listing.Messages)
	}
	return SuccessResponse(c, listing)
}

// redirectWithOutcome sends the browser back to the flow origin with the
// outcome appended as a query parameter
func redirectWithOutcome(c echo.Context, redirectURI, key, value string) error {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid redirect uri")
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, u.String())
}

// callbackErrorCode reduces a callback failure to a short, safe indicator
func callbackErrorCode(err error) string {
	var unknown *types.ErrUnknownProvider
	switch {
	case errors.Is(err, types.ErrTokenExchange):
		return "token_exchange_failed"
	case errors.As(err, &unknown):
		return "unknown_provider"
	default:
		return "connection_failed"
	}
}
