package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/utils"

	"github.com/cenkalti/backoff/v4"
)

// UpdateOptions bounds a single Update call.
type UpdateOptions struct {
	Retries int           // total attempts, at least 1
	Timeout time.Duration // per attempt; zero uses the client timeout
}

// Create registers targetURL with the provider under a fresh random alias.
// An alias collision grows the alias by one letter and retries with a new
// candidate, with no attempt limit of its own: ctx must carry the deadline.
func (c *Client) Create(ctx context.Context, targetURL string, expiresAt *time.Time) (*models.Link, error) {
	length := c.aliasLength

	for {
		if err := ctx.Err(); err != nil {
			return nil, classifyTransport(targetURL, err)
		}

		alias, err := c.aliases.reserve(c.generator, length)
		if err != nil {
			return nil, newRequestError(targetURL, err)
		}

		payload := models.LinkCreate{URL: targetURL, Alias: alias, ExpiresAt: expiresAt}
		status, resp, err := c.doJSONRequest(ctx, http.MethodPost, "/create", payload, c.timeout)
		if err != nil {
			c.aliases.release(alias)
			return nil, err
		}

		if !success(status) {
			if len(resp.Errors) > 0 && resp.Errors[0] == AliasUnavailable {
				c.logger.Debug("alias unavailable, growing alias", "alias", alias, "length", length+1)
				length++
				continue
			}
			c.aliases.release(alias)
			return nil, newCreationError(resp.Errors, status)
		}

		if resp.Data == nil {
			c.aliases.release(alias)
			return nil, newMalformedError("can't find data in response", nil)
		}

		link := c.linkFromData(resp.Data, alias)
		c.logger.Info("short link created", "short_url", link.ShortURL, "target", link.IntendedTarget)
		return link, nil
	}
}

// Update points alias at newTarget. Rejections and timeouts are retried with
// exponential backoff until opts.Retries attempts are spent; the last
// rejection surfaces as an update error, the last timeout as a network error.
// Other transport failures are not retried.
func (c *Client) Update(ctx context.Context, alias, newTarget string, opts UpdateOptions) (*models.Link, error) {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.timeout
	}

	payload := models.LinkChange{Domain: c.shortDomain, URL: newTarget, Alias: alias}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoffInitial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * c.backoffInitial
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(opts.Retries-1)), ctx)

	var link *models.Link
	operation := func() error {
		status, resp, err := c.doJSONRequest(ctx, http.MethodPatch, "/change", payload, opts.Timeout)
		if err != nil {
			if IsKind(err, KindNetwork) {
				return err
			}
			return backoff.Permanent(err)
		}
		if !success(status) {
			return newUpdateError(resp.Errors, status)
		}
		if resp.Data == nil {
			return backoff.Permanent(newMalformedError("can't find data in response", nil))
		}
		link = c.linkFromData(resp.Data, alias)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying update", "alias", alias, "target", newTarget, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if KindOf(err) == "" {
			// context ended between attempts
			return nil, classifyTransport(newTarget, err)
		}
		return nil, err
	}
	return link, nil
}

// CheckTarget verifies that targetURL answers before a link is created for it.
func (c *Client) CheckTarget(ctx context.Context, targetURL string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, targetURL, nil)
	if err != nil {
		return newRequestError(targetURL, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(targetURL, err)
	}
	defer resp.Body.Close()

	// Targets that redirect elsewhere are accepted as long as they respond.
	if resp.Request != nil && resp.Request.URL.Host != req.URL.Host {
		return nil
	}
	if resp.StatusCode >= 400 {
		return newRequestError(targetURL, fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) linkFromData(data *models.LinkData, sentAlias string) *models.Link {
	alias := data.Alias
	if alias == "" {
		alias = sentAlias
	}
	domain := data.Domain
	if domain == "" {
		domain = c.shortDomain
	}
	target := utils.EnsureScheme(data.URL)
	_, tokenID, _ := c.tokens.Current()
	now := time.Now()

	return &models.Link{
		ShortURL:       fmt.Sprintf("%s://%s/%s", c.shortScheme, domain, alias),
		Alias:          alias,
		IntendedTarget: target,
		ResolvedDomain: utils.ResolveDomain(target),
		TokenID:        tokenID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
