package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

const DefaultRequestTimeout = 30 * time.Second

// GraphQLClient implements Client over GraphQL-over-HTTP.
type GraphQLClient struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
}

var _ Client = (*GraphQLClient)(nil)

// NewGraphQLClient creates a client posting to endpoint. tokens may be nil;
// timeout <= 0 selects DefaultRequestTimeout.
func NewGraphQLClient(endpoint string, tokens TokenSource, timeout time.Duration) *GraphQLClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &GraphQLClient{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		tokens:     tokens,
		timeout:    timeout,
	}
}

func (c *GraphQLClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

func mapGraphQLErrors(errs []gqlError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Extensions.Code {
		case "UNAUTHENTICATED", "FORBIDDEN":
			return fmt.Errorf("%w: %s", ErrUnauthorized, e.Message)
		}
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%w: %s", ErrTransport, strings.Join(msgs, "; "))
}

// do posts one operation and decodes its data into out.
func (c *GraphQLClient) do(ctx context.Context, query string, vars map[string]any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s: %s", ErrTransport, resp.Status, snippet(raw))
	}

	var envelope gqlResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrTransport, err)
	}
	if len(envelope.Errors) > 0 {
		return mapGraphQLErrors(envelope.Errors)
	}
	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%w: empty data", ErrTransport)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: malformed data: %v", ErrTransport, err)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func (c *GraphQLClient) Ping(ctx context.Context) error {
	return c.do(ctx, pingQuery, nil, nil)
}

func (c *GraphQLClient) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Login struct {
			AccessToken string `json:"accessToken"`
		} `json:"login"`
	}
	vars := map[string]any{"username": username, "password": password}
	if err := c.do(ctx, loginMutation, vars, &out); err != nil {
		return "", err
	}
	if out.Login.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in login response", ErrUnauthorized)
	}
	return out.Login.AccessToken, nil
}

type refDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *refDTO) model() *models.LocationRef {
	if r == nil || r.ID == "" {
		return nil
	}
	return &models.LocationRef{ID: r.ID, Name: r.Name}
}

// parseDate accepts plain dates and RFC 3339 timestamps.
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: malformed date %q", ErrTransport, *s)
}

func (c *GraphQLClient) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	var out struct {
		Campaigns []struct {
			ID        string  `json:"id"`
			Code      string  `json:"code"`
			Name      string  `json:"name"`
			StartDate *string `json:"startDate"`
			EndDate   *string `json:"endDate"`
		} `json:"campaigns"`
	}
	if err := c.do(ctx, campaignsQuery, nil, &out); err != nil {
		return nil, err
	}

	res := make([]models.Campaign, 0, len(out.Campaigns))
	for _, dto := range out.Campaigns {
		start, err := parseDate(dto.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseDate(dto.EndDate)
		if err != nil {
			return nil, err
		}
		res = append(res, models.Campaign{ID: dto.ID, Code: dto.Code, Name: dto.Name, StartDate: start, EndDate: end})
	}
	return res, nil
}

func (c *GraphQLClient) Groups(ctx context.Context, role string) ([]GroupRow, error) {
	var out struct {
		Groups []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			DeviceID string `json:"deviceId"`
			PINCode  string `json:"pinCode"`
			Role     string `json:"role"`
			Campaign *struct {
				ID string `json:"id"`
			} `json:"campaign"`
			User *struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"user"`
			Locations []struct {
				ID string `json:"id"`
			} `json:"locations"`
		} `json:"groups"`
	}

	var vars map[string]any
	if role != "" {
		vars = map[string]any{"role": role}
	}
	if err := c.do(ctx, groupsQuery, vars, &out); err != nil {
		return nil, err
	}

	res := make([]GroupRow, 0, len(out.Groups))
	for _, dto := range out.Groups {
		row := GroupRow{ID: dto.ID, Name: dto.Name, DeviceID: dto.DeviceID, PIN: dto.PINCode, Role: dto.Role}
		if dto.Campaign != nil {
			row.CampaignID = dto.Campaign.ID
		}
		if dto.User != nil {
			row.User = models.UserRef{ID: dto.User.ID, Username: dto.User.Username}
		}
		for _, l := range dto.Locations {
			row.LocationIDs = append(row.LocationIDs, l.ID)
		}
		res = append(res, row)
	}
	return res, nil
}

func (c *GraphQLClient) Locations(ctx context.Context) ([]models.Location, error) {
	var out struct {
		Locations []struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			Description string  `json:"description"`
			Barcode     string  `json:"barcode"`
			Parent      *refDTO `json:"parent"`
		} `json:"locations"`
	}
	if err := c.do(ctx, locationsQuery, nil, &out); err != nil {
		return nil, err
	}

	res := make([]models.Location, 0, len(out.Locations))
	for _, dto := range out.Locations {
		res = append(res, models.Location{
			ID:          dto.ID,
			Name:        dto.Name,
			Description: dto.Description,
			Barcode:     dto.Barcode,
			Parent:      dto.Parent.model(),
		})
	}
	return res, nil
}

func (c *GraphQLClient) Articles(ctx context.Context, page, pageSize int) (*ArticlePage, error) {
	var out struct {
		Articles struct {
			Page       int `json:"page"`
			TotalPages int `json:"totalPages"`
			Rows       []struct {
				ID              string   `json:"id"`
				Code            string   `json:"code"`
				Description     string   `json:"description"`
				SerialNumber    string   `json:"serialNumber"`
				CurrentLocation *refDTO  `json:"currentLocation"`
				Locations       []refDTO `json:"locations"`
			} `json:"rows"`
		} `json:"articles"`
	}
	vars := map[string]any{"page": page, "pageSize": pageSize}
	if err := c.do(ctx, articlesQuery, vars, &out); err != nil {
		return nil, err
	}

	res := &ArticlePage{Page: out.Articles.Page, TotalPages: out.Articles.TotalPages}
	if res.Page == 0 {
		res.Page = page
	}
	for _, dto := range out.Articles.Rows {
		row := ArticleRow{
			ID:              dto.ID,
			Code:            dto.Code,
			Description:     dto.Description,
			SerialNumber:    dto.SerialNumber,
			CurrentLocation: dto.CurrentLocation.model(),
		}
		for _, l := range dto.Locations {
			row.Locations = append(row.Locations, models.LocationRef{ID: l.ID, Name: l.Name})
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Scans lists the scans already known to the server. The returned records
// are marked synced and carry the remote id in both ID and RemoteID.
func (c *GraphQLClient) Scans(ctx context.Context, campaignID, groupID string) ([]models.ScanRecord, error) {
	var out struct {
		Scans []struct {
			ID           string   `json:"id"`
			CampaignID   string   `json:"campaignId"`
			GroupID      string   `json:"groupId"`
			LocationID   string   `json:"locationId"`
			Code         string   `json:"code"`
			ArticleID    *string  `json:"articleId"`
			Description  string   `json:"description"`
			Observation  string   `json:"observation"`
			SerialNumber string   `json:"serialNumber"`
			Etat         string   `json:"etat"`
			CapturedAt   string   `json:"capturedAt"`
			Source       string   `json:"source"`
			Latitude     *float64 `json:"latitude"`
			Longitude    *float64 `json:"longitude"`
		} `json:"scans"`
	}
	vars := map[string]any{"campaignId": campaignID, "groupId": groupID}
	if err := c.do(ctx, scansQuery, vars, &out); err != nil {
		return nil, err
	}

	res := make([]models.ScanRecord, 0, len(out.Scans))
	for _, dto := range out.Scans {
		captured, err := parseDate(&dto.CapturedAt)
		if err != nil {
			return nil, err
		}
		remoteID := dto.ID
		rec := models.ScanRecord{
			ID:           dto.ID,
			RemoteID:     &remoteID,
			CampaignID:   dto.CampaignID,
			GroupID:      dto.GroupID,
			LocationID:   dto.LocationID,
			Code:         dto.Code,
			ArticleID:    dto.ArticleID,
			Description:  dto.Description,
			Observation:  dto.Observation,
			SerialNumber: dto.SerialNumber,
			Condition:    models.Condition(dto.Etat),
			Source:       models.ScanSource(dto.Source),
			Latitude:     dto.Latitude,
			Longitude:    dto.Longitude,
			IsSynced:     true,
		}
		if captured != nil {
			rec.CapturedAt = *captured
		}
		res = append(res, rec)
	}
	return res, nil
}

func (c *GraphQLClient) SyncScans(ctx context.Context, scans []ScanPayload) ([]SyncResult, error) {
	var out struct {
		SyncScans []SyncResult `json:"syncScans"`
	}
	if err := c.do(ctx, syncScansMutation, map[string]any{"input": scans}, &out); err != nil {
		return nil, err
	}
	return out.SyncScans, nil
}

func (c *GraphQLClient) SyncScanImages(ctx context.Context, images []ImagePayload) ([]SyncResult, error) {
	var out struct {
		SyncScanImages []SyncResult `json:"syncScanImages"`
	}
	if err := c.do(ctx, syncScanImagesMutation, map[string]any{"input": images}, &out); err != nil {
		return nil, err
	}
	return out.SyncScanImages, nil
}

// IsTransportFailure reports whether err came from the remote API rather
// than from local processing.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTransport)
}
