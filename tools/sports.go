package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var sportsLogger = logrus.WithField("tool", "sports")

// Query tuning sent with every sports data request.
const (
	queryTopK          = 20
	queryMinScore      = 0.5
	queryMaxOddsPerEvt = 7
	oddsShown          = 3
)

// SportsClient queries the sports data API with natural language and formats
// the matching events for the model. Every failure path returns advisory
// text suggesting web search as a fallback, never an error.
type SportsClient struct {
	baseURL string
	httpc   *http.Client
	logger  *logrus.Entry
}

// NewSportsClient creates a client with a hard per-call timeout. The timeout
// bounds the whole outbound call including body read.
func NewSportsClient(baseURL string, timeout time.Duration) *SportsClient {
	sportsLogger.WithFields(logrus.Fields{"baseURL": baseURL, "timeout": timeout}).Debug("Initializing sports data client")
	return &SportsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  sportsLogger,
	}
}

type sportsQueryRequest struct {
	Query           string  `json:"query"`
	TopK            int     `json:"top_k"`
	MinScore        float64 `json:"min_score"`
	MaxOddsPerEvent int     `json:"max_odds_per_event"`
}

type sportsQueryResponse struct {
	Query        string        `json:"query"`
	Results      []sportsEvent `json:"results"`
	TotalResults int           `json:"total_results"`
}

type sportsEvent struct {
	EventID      int64       `json:"event_id"`
	EventName    string      `json:"event_name"`
	SportName    string      `json:"sport_name"`
	ChampName    string      `json:"champ_name"`
	CategoryName string      `json:"category_name"`
	Status       string      `json:"status"`
	IsLive       bool        `json:"is_live"`
	StartDate    string      `json:"start_date"`
	Score        float64     `json:"score"`
	Odds         []sportsOdd `json:"odds"`
}

type sportsOdd struct {
	SelectionID   int64   `json:"selection_id"`
	SelectionName string  `json:"selection_name"`
	MarketID      int64   `json:"market_id"`
	MarketName    string  `json:"market_name"`
	Price         float64 `json:"price"`
}

// Query runs one natural-language query and returns formatted event text.
// The trace id ties the outbound call to the requesting user.
func (c *SportsClient) Query(ctx context.Context, query, traceID string) string {
	body, err := json.Marshal(sportsQueryRequest{
		Query:           query,
		TopK:            queryTopK,
		MinScore:        queryMinScore,
		MaxOddsPerEvent: queryMaxOddsPerEvt,
	})
	if err != nil {
		return fmt.Sprintf("Error querying sports data: %v. Use web_search as a fallback.", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/query", bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("Error querying sports data: %v. Use web_search as a fallback.", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace-ID", traceID)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("query", query).Error("Sports data request failed")
		return fmt.Sprintf("Error querying sports data: %v. Use web_search as a fallback.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "query": query}).Error("Sports data API returned non-200")
		return fmt.Sprintf("No sports data results found for: %q. Try web_search as an alternative.", query)
	}

	var data sportsQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.WithError(err).WithField("query", query).Error("Malformed sports data payload")
		return fmt.Sprintf("Error reading sports data results: %v. Use web_search as a fallback.", err)
	}

	if len(data.Results) == 0 {
		return fmt.Sprintf("No events available for: %q.", query)
	}

	return formatEvents(data.Results, query)
}

func formatEvents(events []sportsEvent, query string) string {
	lines := []string{fmt.Sprintf("Found %d event(s) for %q:\n", len(events), query)}

	for _, event := range events {
		liveTag := ""
		if event.IsLive {
			liveTag = " [LIVE]"
		}
		lines = append(lines,
			fmt.Sprintf("> %s%s", event.EventName, liveTag),
			fmt.Sprintf("   Sport: %s | Competition: %s (%s)", event.SportName, event.ChampName, event.CategoryName),
			fmt.Sprintf("   Date: %s | Status: %s", event.StartDate, event.Status),
			fmt.Sprintf("   EventID: %d | URL: https://vsft.virtualsoft.tech/sport/%s/%d",
				event.EventID, strings.ToLower(event.SportName), event.EventID),
		)

		if len(event.Odds) > 0 {
			lines = append(lines, "   Top odds:")
			top := event.Odds
			if len(top) > oddsShown {
				top = top[:oddsShown]
			}
			for _, odd := range top {
				lines = append(lines, fmt.Sprintf("     - %s (%s): %.2f", odd.SelectionName, odd.MarketName, odd.Price))
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
