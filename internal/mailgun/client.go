package mailgun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/httpx"
)

var _ core.EmailSender = (*Client)(nil)

// Client sends transactional mail through the MailGun messages API. The
// transport injects Basic base64("api:"+apiKey) and retries rejected
// requests once.
type Client struct {
	apiBase    string
	domain     string
	from       string
	httpClient *http.Client
}

func NewClient(apiBase, domain, apiKey, from string) *Client {
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		domain:  domain,
		from:    from,
		httpClient: &http.Client{
			Transport: &httpx.BasicAuthTransport{
				Username: "api",
				Password: apiKey,
			},
		},
	}
}

func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return core.ValidationError{Field: "to"}
	}
	if subject == "" {
		return core.ValidationError{Field: "subject"}
	}
	if html == "" {
		return core.ValidationError{Field: "html"}
	}

	log.Ctx(ctx).Info().
		Str("to", to).
		Str("subject", subject).
		Msg("sending email")

	endpoint := fmt.Sprintf("%s/%s/messages", c.apiBase, c.domain)

	query := url.Values{}
	query.Set("from", c.from)
	query.Set("to", to)
	query.Set("subject", subject)
	query.Set("html", html)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating message request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing message request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &core.UpstreamError{Op: "mailgun.send", Status: resp.StatusCode, Body: string(raw)}
	}
	return nil
}
