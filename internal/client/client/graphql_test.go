package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken(context.Context) (string, error) { return string(s), nil }

type recorded struct {
	auth string
	req  gqlRequest
}

// newServer answers every request with handler's body/status and records
// the decoded request.
func newServer(t *testing.T, status int, body string, rec *recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec != nil {
			rec.auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rec.req))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGraphQLClient_BearerAndVariables(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, `{"data":{"articles":{"page":2,"totalPages":3,"rows":[
		{"id":"a1","code":"A100","description":"Desk","serialNumber":"SN1",
		 "currentLocation":{"id":"l1","name":"LocationX"},
		 "locations":[{"id":"l1","name":"LocationX"}]}]}}}`, rec)

	c := NewGraphQLClient(srv.URL, staticToken("tok"), time.Second)
	defer c.Close()

	page, err := c.Articles(context.Background(), 2, 50)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Contains(t, rec.req.Query, "articles(page: $page")
	assert.EqualValues(t, 2, rec.req.Variables["page"])
	assert.EqualValues(t, 50, rec.req.Variables["pageSize"])

	require.Equal(t, 2, page.Page)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "A100", page.Rows[0].Code)
	require.NotNil(t, page.Rows[0].CurrentLocation)
	assert.Equal(t, "LocationX", page.Rows[0].CurrentLocation.Name)
}

func TestGraphQLClient_NoTokenNoHeader(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, `{"data":{"__typename":"Query"}}`, rec)

	c := NewGraphQLClient(srv.URL, staticToken(""), time.Second)
	require.NoError(t, c.Ping(context.Background()))
	assert.Empty(t, rec.auth)
}

func TestGraphQLClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"401", http.StatusUnauthorized, `{}`, ErrUnauthorized},
		{"403", http.StatusForbidden, `{}`, ErrUnauthorized},
		{"500", http.StatusInternalServerError, `boom`, ErrTransport},
		{"malformed", http.StatusOK, `not json`, ErrTransport},
		{"graphql error", http.StatusOK, `{"errors":[{"message":"bad input"}]}`, ErrTransport},
		{"unauthenticated extension", http.StatusOK,
			`{"errors":[{"message":"login","extensions":{"code":"UNAUTHENTICATED"}}]}`, ErrUnauthorized},
		{"null data", http.StatusOK, `{"data":null}`, ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body, nil)
			c := NewGraphQLClient(srv.URL, nil, time.Second)
			_, err := c.Campaigns(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, IsTransportFailure(err))
		})
	}
}

func TestGraphQLClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewGraphQLClient(url, nil, time.Second)
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGraphQLClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewGraphQLClient(srv.URL, nil, 50*time.Millisecond)
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGraphQLClient_CampaignsDates(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"data":{"campaigns":[
		{"id":"c1","code":"INV24","name":"Inventaire 2024","startDate":"2024-01-15","endDate":null},
		{"id":"c2","code":"INV25","name":"Inventaire 2025","startDate":"2025-01-15T08:00:00Z"}]}}`, nil)

	c := NewGraphQLClient(srv.URL, nil, time.Second)
	got, err := c.Campaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].StartDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *got[0].StartDate)
	assert.Nil(t, got[0].EndDate)
	assert.Equal(t, 8, got[1].StartDate.Hour())
}

func TestGraphQLClient_CampaignsBadDate(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"data":{"campaigns":[{"id":"c1","startDate":"15/01/2024"}]}}`, nil)
	c := NewGraphQLClient(srv.URL, nil, time.Second)
	_, err := c.Campaigns(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestGraphQLClient_GroupsRoleFilter(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, `{"data":{"groups":[
		{"id":"g1","name":"Team A","deviceId":"d1","pinCode":"1234","role":"COUNTER",
		 "campaign":{"id":"c1"},"user":{"id":"u1","username":"alice"},
		 "locations":[{"id":"l1"},{"id":"l2"}]}]}}`, rec)

	c := NewGraphQLClient(srv.URL, nil, time.Second)
	rows, err := c.Groups(context.Background(), "COUNTER")
	require.NoError(t, err)
	assert.Equal(t, "COUNTER", rec.req.Variables["role"])

	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0].CampaignID)
	assert.Equal(t, "1234", rows[0].PIN)
	assert.Equal(t, "alice", rows[0].User.Username)
	assert.Equal(t, []string{"l1", "l2"}, rows[0].LocationIDs)
}

func TestGraphQLClient_LocationsAndScans(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"data":{
		"locations":[{"id":"l2","name":"Office","barcode":"LOC-2","parent":{"id":"l1","name":"Building"}}],
		"scans":[{"id":"r1","campaignId":"c1","groupId":"g1","locationId":"l2","code":"A100",
		          "etat":"BIEN","capturedAt":"2024-03-01T10:00:00Z","source":"camera"}]}}`, nil)

	c := NewGraphQLClient(srv.URL, nil, time.Second)

	locs, err := c.Locations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.NotNil(t, locs[0].Parent)
	assert.Equal(t, "Building", locs[0].Parent.Name)

	scans, err := c.Scans(context.Background(), "c1", "g1")
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.True(t, scans[0].IsSynced)
	require.NotNil(t, scans[0].RemoteID)
	assert.Equal(t, "r1", *scans[0].RemoteID)
	assert.Equal(t, "BIEN", string(scans[0].Condition))
	assert.Equal(t, 10, scans[0].CapturedAt.Hour())
}

func TestGraphQLClient_SyncScans(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, http.StatusOK, `{"data":{"syncScans":[
		{"localId":"s1","success":true,"remoteId":"r1","errors":[]},
		{"localId":"s2","success":false,"errors":[{"field":"code","messages":["unknown","too long"]}]}]}}`, rec)

	c := NewGraphQLClient(srv.URL, staticToken("tok"), time.Second)
	res, err := c.SyncScans(context.Background(), []ScanPayload{
		{LocalID: "s1", Code: "A100", CapturedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Source: "manual"},
		{LocalID: "s2", Code: "??", Source: "manual"},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "r1", res[0].RemoteID)
	assert.Equal(t, "code: unknown, too long", res[1].Reason())

	input, ok := rec.req.Variables["input"].([]any)
	require.True(t, ok)
	require.Len(t, input, 2)
	first := input[0].(map[string]any)
	assert.Equal(t, "s1", first["localId"])
	assert.Equal(t, "2024-03-01T10:00:00Z", first["capturedAt"])
	assert.True(t, strings.Contains(rec.req.Query, "syncScans"))
}

func TestGraphQLClient_LoginRequiresToken(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"data":{"login":{"accessToken":""}}}`, nil)
	c := NewGraphQLClient(srv.URL, nil, time.Second)
	_, err := c.Login(context.Background(), "alice", "secret")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestFormatFieldErrors(t *testing.T) {
	got := FormatFieldErrors([]FieldError{
		{Field: "code", Messages: []string{"m1", "m2"}},
		{Field: "other", Messages: []string{"m3"}},
		{Messages: []string{"general"}},
	})
	assert.Equal(t, "code: m1, m2; other: m3; general", got)

	assert.Equal(t, "rejected by server", SyncResult{}.Reason())
	assert.Equal(t, "no remote id returned", SyncResult{Success: true}.Reason())
}
