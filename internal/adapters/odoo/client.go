package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/ports"
)

const (
	authenticatePath = "/web/session/authenticate"
	callPath         = "/web/dataset/call_kw"
	destroyPath      = "/web/session/destroy"
	versionPath      = "/web/webclient/version_info"

	sessionHeader    = "X-Openerp-Session-Id"
	maxResponseBytes = 1 << 20
)

// Config holds the connection settings for the remote backend.
type Config struct {
	BaseURL  string
	Database string

	// RequestTimeout bounds every remote call.
	RequestTimeout time.Duration

	// SessionTTL is the client-side lifetime assigned to a fresh session;
	// the backend does not report one.
	SessionTTL time.Duration
}

// Client is the stateless JSON-RPC transport to the backend. Session state
// lives in the session service; the client only attaches what it is given.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

var _ ports.Backend = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func WithLogger(log zerolog.Logger) Option { return func(c *Client) { c.log = log } }

func WithNow(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.Database == "" {
		return nil, errors.New("backend database is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}

	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return errors.New("backend base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse backend base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("backend base url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("backend base url host is required")
	}
	return nil
}

// Authenticate performs the remote handshake and returns a fresh session
// with a client-side expiry.
func (c *Client) Authenticate(ctx context.Context, cred domain.Credential) (domain.Session, error) {
	if cred.Empty() {
		return domain.Session{}, domain.NewError(domain.KindUnauthorized, "no credential available")
	}

	params := authParams{DB: c.cfg.Database, Login: cred.Login, Password: cred.Secret}
	result, resp, err := c.post(ctx, authenticatePath, params, "")
	if err != nil {
		return domain.Session{}, err
	}

	var info sessionInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return domain.Session{}, domain.WrapError(domain.KindUnknown, "decode authenticate response", err)
	}
	if info.UID == 0 {
		return domain.Session{}, domain.NewError(domain.KindUnauthorized, "invalid credentials")
	}

	token := string(info.SessionID)
	if token == "" {
		token = sessionCookie(resp)
	}
	if token == "" {
		return domain.Session{}, domain.NewError(domain.KindUnknown, "authenticate response carried no session token")
	}

	now := c.now()
	sess := domain.Session{
		UID:        int(info.UID),
		Login:      cred.Login,
		Name:       string(info.Name),
		PartnerID:  int(info.PartnerID),
		Token:      token,
		Privileged: info.IsAdmin,
		Context:    info.UserContext,
		IssuedAt:   now,
		ExpiresAt:  now.Add(c.cfg.SessionTTL),
	}

	c.log.Debug().Int("uid", sess.UID).Bool("privileged", sess.Privileged).Msg("backend handshake complete")
	return sess, nil
}

// Execute sends one model-method call under the given session.
func (c *Client) Execute(ctx context.Context, sess domain.Session, req domain.RPCRequest) (json.RawMessage, error) {
	args := req.Args
	if args == nil {
		args = []any{}
	}

	kwargs := make(map[string]any, len(req.Kwargs)+1)
	for k, v := range req.Kwargs {
		kwargs[k] = v
	}
	if execCtx := mergeContext(sess.Context, kwargs["context"]); len(execCtx) > 0 {
		kwargs["context"] = execCtx
	}

	params := callParams{Model: req.Model, Method: req.Method, Args: args, Kwargs: kwargs}
	result, _, err := c.post(ctx, callPath, params, sess.Token)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Logout destroys the remote session.
func (c *Client) Logout(ctx context.Context, sess domain.Session) error {
	_, _, err := c.post(ctx, destroyPath, map[string]any{}, sess.Token)
	return err
}

// Ping probes the backend's version endpoint, which requires no session,
// and reports the server version string it advertises.
func (c *Client) Ping(ctx context.Context) (string, error) {
	result, _, err := c.post(ctx, versionPath, map[string]any{}, "")
	if err != nil {
		return "", err
	}
	var info struct {
		ServerVersion string `json:"server_version"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		return "", domain.WrapError(domain.KindUnknown, "decode version info", err)
	}
	return info.ServerVersion, nil
}

func (c *Client) post(ctx context.Context, path string, params any, token string) (json.RawMessage, *http.Response, error) {
	envelope := rpcEnvelope{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      rand.Int64N(1_000_000_000),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, domain.WrapError(domain.KindUnknown, "encode rpc envelope", err)
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, domain.WrapError(domain.KindUnknown, "create rpc request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set(sessionHeader, token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, networkError(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, statusError(resp.StatusCode, raw)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, domain.WrapError(domain.KindUnknown, "decode rpc response", err)
	}
	if decoded.Error != nil {
		return nil, nil, mapRPCError(decoded.Error)
	}
	return decoded.Result, resp, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

func sessionCookie(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			return cookie.Value
		}
	}
	return ""
}

func mergeContext(sessionCtx map[string]any, callCtx any) map[string]any {
	merged := make(map[string]any, len(sessionCtx))
	for k, v := range sessionCtx {
		merged[k] = v
	}
	if extra, ok := callCtx.(map[string]any); ok {
		for k, v := range extra {
			merged[k] = v
		}
	}
	return merged
}
