package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"lol-stream-tracker/internal/config"
	"lol-stream-tracker/internal/constants"
	"lol-stream-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrUpstreamUnavailable = errors.New("riot api unavailable")
)

// errNotFound is the internal 404 marker; endpoints map it to their own
// domain error.
var errNotFound = errors.New("riot: not found")

type Client struct {
	apiKey      string
	client      *fasthttp.Client
	logger      zerolog.Logger
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		apiKey: cfg.RiotAPIKey,
		logger: logger,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{
			Limit:     100,
			Remaining: 100,
			UpdatedAt: time.Now(),
		},
	}
}

func (c *Client) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-App-Rate-Limit")); limit != "" {
		if val, err := strconv.Atoi(firstBucket(limit)); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if count := string(resp.Header.Peek("X-App-Rate-Limit-Count")); count != "" {
		if val, err := strconv.Atoi(firstBucket(count)); err == nil {
			c.rateLimit.Remaining = c.rateLimit.Limit - val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// Riot rate-limit headers look like "20:1,100:120"; the first bucket is the
// short window.
func firstBucket(header string) string {
	for i := 0; i < len(header); i++ {
		if header[i] == ':' {
			return header[:i]
		}
	}
	return header
}

type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// AccountByRiotID resolves a riot id (name + tag) to an account.
func (c *Client) AccountByRiotID(ctx context.Context, name, tag, region string) (*Account, error) {
	route, err := regionalRoute(region)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("https://%s.api.riotgames.com/riot/account/v1/accounts/by-riot-id/%s/%s",
		route, url.PathEscape(name), url.PathEscape(tag))

	account, err := doRequest[Account](ctx, c, u)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s#%s", ErrAccountNotFound, name, tag)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

type leagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// CurrentSoloQueueRank returns the player's ranked solo/duo snapshot. A
// player with no solo queue entry is unranked, not an error.
func (c *Client) CurrentSoloQueueRank(ctx context.Context, puuid, region string) (*domain.RankSnapshot, error) {
	u := fmt.Sprintf("https://%s.api.riotgames.com/lol/league/v4/entries/by-puuid/%s",
		region, url.PathEscape(puuid))

	entries, err := doRequest[[]leagueEntry](ctx, c, u)
	if errors.Is(err, errNotFound) {
		return &domain.RankSnapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	for _, e := range *entries {
		if e.QueueType != "RANKED_SOLO_5x5" {
			continue
		}
		return snapshotFromEntry(e), nil
	}

	c.logger.Debug().Str("puuid", puuid).Msg("no solo queue entry, player is unranked")
	return &domain.RankSnapshot{}, nil
}

type matchResponse struct {
	Info struct {
		GameEndTimestamp int64 `json:"gameEndTimestamp"`
		Participants     []struct {
			PUUID string `json:"puuid"`
			Win   bool   `json:"win"`
		} `json:"participants"`
	} `json:"info"`
}

// MatchesSince lists the player's completed ranked solo matches that started
// at or after since. A match where the player cannot be found carries an
// unknown outcome for the caller to reject.
func (c *Client) MatchesSince(ctx context.Context, puuid, region string, since time.Time) ([]domain.Match, error) {
	route, err := regionalRoute(region)
	if err != nil {
		return nil, err
	}

	idsURL := fmt.Sprintf(
		"https://%s.api.riotgames.com/lol/match/v5/matches/by-puuid/%s/ids?startTime=%d&queue=%d&count=%d",
		route, url.PathEscape(puuid), since.Unix(), constants.SoloQueueID, constants.MatchPageSize)

	ids, err := doRequest[[]string](ctx, c, idsURL)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	matches := make([]domain.Match, 0, len(*ids))
	for _, id := range *ids {
		detailURL := fmt.Sprintf("https://%s.api.riotgames.com/lol/match/v5/matches/%s", route, id)
		detail, err := doRequest[matchResponse](ctx, c, detailURL)
		if err != nil {
			return nil, err
		}

		outcome := domain.OutcomeUnknown
		for _, p := range detail.Info.Participants {
			if p.PUUID == puuid {
				if p.Win {
					outcome = domain.OutcomeWin
				} else {
					outcome = domain.OutcomeLoss
				}
				break
			}
		}

		matches = append(matches, domain.Match{
			ID:      id,
			EndedAt: time.UnixMilli(detail.Info.GameEndTimestamp).UTC(),
			Outcome: outcome,
		})
	}

	c.logger.Debug().
		Str("puuid", puuid).
		Int("count", len(matches)).
		Time("since", since).
		Msg("fetched matches")
	return matches, nil
}

// doRequest issues one authenticated GET with retry on 429/5xx/transport
// errors. Retrying lives here, at the upstream boundary, so the
// reconciliation core stays retry-free.
func doRequest[T any](ctx context.Context, c *Client, u string) (*T, error) {
	var result T

	backoff := retry.WithMaxRetries(constants.UpstreamMaxRetries,
		retry.NewFibonacci(constants.UpstreamRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(u)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("X-Riot-Token", c.apiKey)

		var doErr error
		if deadline, ok := ctx.Deadline(); ok {
			doErr = c.client.DoDeadline(req, resp, deadline)
		} else {
			doErr = c.client.Do(req, resp)
		}
		if doErr != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUpstreamUnavailable, doErr))
		}

		c.updateRateLimit(resp)

		switch status := resp.StatusCode(); {
		case status == fasthttp.StatusOK:
		case status == fasthttp.StatusNotFound:
			return errNotFound
		case status == fasthttp.StatusTooManyRequests || status >= 500:
			return retry.RetryableError(fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, status))
		default:
			return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, status)
		}

		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrUpstreamUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
