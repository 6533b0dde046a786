package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var result LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", body, false, &result); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(result.Token)
	return result, nil
}

// GetPageContent returns the public bundle of slug.
func (c *Client) GetPageContent(ctx context.Context, slug string) (Bundle, error) {
	var bundle Bundle
	if err := c.cachedGet(ctx, contentPath(slug), &bundle); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

// GetAdminPageContent returns every row of slug, inactive ones included.
// The answer is cached like public reads; RefreshAdminPageContent bypasses it.
func (c *Client) GetAdminPageContent(ctx context.Context, slug string) (Bundle, error) {
	raw, err := c.adminRead(ctx, adminContentPath(slug))
	if err != nil {
		return Bundle{}, err
	}
	var bundle Bundle
	if err := decodeInto(raw, &bundle, adminContentPath(slug)); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

// RefreshAdminPageContent drops the cached admin bundle and fetches it again.
func (c *Client) RefreshAdminPageContent(ctx context.Context, slug string) (Bundle, error) {
	c.clear(ctx, adminContentPath(slug))
	return c.GetAdminPageContent(ctx, slug)
}

// ListPages returns every page that has content.
func (c *Client) ListPages(ctx context.Context) ([]PageSummary, error) {
	raw, err := c.adminRead(ctx, "/api/admin/pages")
	if err != nil {
		return nil, err
	}
	var body struct {
		Pages []PageSummary `json:"pages"`
	}
	if err := decodeInto(raw, &body, "/api/admin/pages"); err != nil {
		return nil, err
	}
	return body.Pages, nil
}

// UpdateHero upserts the hero of slug.
func (c *Client) UpdateHero(ctx context.Context, slug string, update HeroUpdate) (Content, error) {
	var body struct {
		Content Content `json:"content"`
	}
	err := c.send(ctx, http.MethodPut, contentPath(slug)+"/hero", update, true, &body)
	c.invalidatePage(ctx, slug)
	if err != nil {
		return Content{}, err
	}
	return body.Content, nil
}

// AddSection appends a section to slug.
func (c *Client) AddSection(ctx context.Context, slug string, section NewSection) (Content, error) {
	if strings.TrimSpace(section.ContentType) == "" {
		return Content{}, &APIError{Status: http.StatusBadRequest, Field: "content_type", Message: "content_type is required"}
	}
	var body struct {
		Content Content `json:"content"`
	}
	err := c.send(ctx, http.MethodPost, contentPath(slug)+"/sections", section, true, &body)
	c.invalidatePage(ctx, slug)
	if err != nil {
		return Content{}, err
	}
	return body.Content, nil
}

// UpdateSection partially updates section id of slug.
func (c *Client) UpdateSection(ctx context.Context, slug string, id uint, update SectionUpdate) (Content, error) {
	var body struct {
		Content Content `json:"content"`
	}
	err := c.send(ctx, http.MethodPut, contentPath(slug)+"/sections/"+idString(id), update, true, &body)
	c.invalidatePage(ctx, slug)
	if err != nil {
		return Content{}, err
	}
	return body.Content, nil
}

// DeleteSection removes section id of slug. Deleting an unknown id returns ErrNotFound.
func (c *Client) DeleteSection(ctx context.Context, slug string, id uint) error {
	err := c.send(ctx, http.MethodDelete, contentPath(slug)+"/sections/"+idString(id), nil, true, nil)
	c.invalidatePage(ctx, slug)
	return err
}

// ReorderSections applies all positions or none.
func (c *Client) ReorderSections(ctx context.Context, slug string, positions []Position) error {
	body := map[string][]Position{"sections": positions}
	err := c.send(ctx, http.MethodPut, contentPath(slug)+"/reorder", body, true, nil)
	c.invalidatePage(ctx, slug)
	return err
}

// GetForm returns the public schema of an active form.
func (c *Client) GetForm(ctx context.Context, slug string) (Form, error) {
	var form Form
	if err := c.cachedGet(ctx, formPath(slug), &form); err != nil {
		return Form{}, err
	}
	return form, nil
}

// SubmitForm posts values to the public submit endpoint.
func (c *Client) SubmitForm(ctx context.Context, slug string, values map[string]string) (SubmitResult, error) {
	var result SubmitResult
	if err := c.send(ctx, http.MethodPost, formPath(slug)+"/submit", values, false, &result); err != nil {
		return SubmitResult{}, err
	}
	return result, nil
}

// ListMedia pages through the media catalog.
func (c *Client) ListMedia(ctx context.Context, query MediaQuery) (MediaPage, error) {
	values := url.Values{}
	if query.Category != "" {
		values.Set("category", query.Category)
	}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(query.PerPage))
	}

	path := "/api/media"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	raw, err := c.adminRead(ctx, path)
	if err != nil {
		return MediaPage{}, err
	}
	var page MediaPage
	if err := decodeInto(raw, &page, "/api/media"); err != nil {
		return MediaPage{}, err
	}
	return page, nil
}

// GetMedia returns one media asset.
func (c *Client) GetMedia(ctx context.Context, id uint) (Media, error) {
	path := "/api/media/" + idString(id)
	raw, err := c.adminRead(ctx, path)
	if err != nil {
		return Media{}, err
	}
	var media Media
	if err := decodeInto(raw, &media, path); err != nil {
		return Media{}, err
	}
	return media, nil
}

// adminRead is a cached GET that carries the bearer token. path may hold a
// query string.
func (c *Client) adminRead(ctx context.Context, path string) ([]byte, error) {
	target := c.baseURL + path
	return c.cache.Fetch(ctx, target, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, target, nil, true)
	})
}

// invalidatePage clears every cached read a content write can change, also
// after a failed write.
func (c *Client) invalidatePage(ctx context.Context, slug string) {
	c.clear(ctx, contentPath(slug), adminContentPath(slug), "/api/admin/pages")
}

func adminContentPath(slug string) string {
	return "/api/admin/content/" + canonicalSlug(slug)
}

func decodeInto(raw []byte, dst any, path string) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
