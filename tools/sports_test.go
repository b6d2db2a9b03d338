package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sportsFixture() sportsQueryResponse {
	return sportsQueryResponse{
		Query: "liga betplay live now",
		Results: []sportsEvent{
			{
				EventID:      4711,
				EventName:    "Millonarios vs Nacional",
				SportName:    "Soccer",
				ChampName:    "Liga BetPlay",
				CategoryName: "Colombia",
				Status:       "in_play",
				IsLive:       true,
				StartDate:    "2026-08-31 19:00",
				Score:        0.92,
				Odds: []sportsOdd{
					{SelectionName: "Millonarios", MarketName: "Match Winner", Price: 2.10},
					{SelectionName: "Draw", MarketName: "Match Winner", Price: 3.20},
					{SelectionName: "Nacional", MarketName: "Match Winner", Price: 3.50},
					{SelectionName: "Over 2.5", MarketName: "Total Goals", Price: 1.85},
				},
			},
		},
		TotalResults: 1,
	}
}

func TestSportsQueryFormatsEvents(t *testing.T) {
	var gotReq sportsQueryRequest
	var gotTrace string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		gotTrace = r.Header.Get("X-Trace-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		require.NoError(t, json.NewEncoder(w).Encode(sportsFixture()))
	}))
	defer server.Close()

	client := NewSportsClient(server.URL, 5*time.Second)
	result := client.Query(context.Background(), "liga betplay live now", "u1")

	assert.Equal(t, "liga betplay live now", gotReq.Query)
	assert.Equal(t, queryTopK, gotReq.TopK)
	assert.Equal(t, "u1", gotTrace)

	assert.Contains(t, result, "Found 1 event(s)")
	assert.Contains(t, result, "Millonarios vs Nacional [LIVE]")
	assert.Contains(t, result, "Liga BetPlay (Colombia)")
	assert.Contains(t, result, "https://vsft.virtualsoft.tech/sport/soccer/4711")
	assert.Contains(t, result, "Millonarios (Match Winner): 2.10")
	// Only the top three odds are shown.
	assert.NotContains(t, result, "Over 2.5")
}

func TestSportsQueryEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(sportsQueryResponse{Query: "curling finals"})
	}))
	defer server.Close()

	client := NewSportsClient(server.URL, 5*time.Second)
	result := client.Query(context.Background(), "curling finals", "u1")

	assert.Equal(t, `No events available for: "curling finals".`, result)
}

func TestSportsQueryNon200IsAdvisoryText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewSportsClient(server.URL, 5*time.Second)
	result := client.Query(context.Background(), "nba tonight", "u1")

	assert.Contains(t, result, "No sports data results found")
	assert.Contains(t, result, "web_search")
}

func TestSportsQueryConnectionErrorIsAdvisoryText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewSportsClient(server.URL, time.Second)
	result := client.Query(context.Background(), "nba tonight", "u1")

	assert.Contains(t, result, "Error querying sports data")
	assert.Contains(t, result, "web_search")
}

func TestSportsQueryMalformedPayloadIsAdvisoryText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewSportsClient(server.URL, 5*time.Second)
	result := client.Query(context.Background(), "nba tonight", "u1")

	assert.Contains(t, result, "Error reading sports data results")
}

func TestEventToolsAugmentQueries(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sportsQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		queries = append(queries, req.Query)
		json.NewEncoder(w).Encode(sportsQueryResponse{})
	}))
	defer server.Close()

	client := NewSportsClient(server.URL, 5*time.Second)
	request := Request{UserID: "u1", Input: map[string]any{"query": "liga betplay"}}

	_, err := NewLiveEventsTool(client).Call(context.Background(), request)
	require.NoError(t, err)
	_, err = NewUpcomingEventsTool(client).Call(context.Background(), request)
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.Equal(t, "liga betplay live now", queries[0])
	assert.Equal(t, "liga betplay upcoming scheduled", queries[1])
}
