// Package partner is a client for the affiliate program API that backs
// membership verification. Every authenticated call is signed with a
// server-time HMAC; responses are decoded into typed structs at this
// boundary so callers never touch raw payloads.
package partner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	detailPath = "/affiliate/invitee/detail"

	// the status sentinel the partner uses for success
	successCode = "0"

	detailTimeout  = 15 * time.Second
	timeTimeout    = 10 * time.Second
	detailCacheTTL = 10 * time.Minute
)

// ErrNotReferral covers both an explicit partner rejection and an empty
// data payload; the two are indistinguishable to callers.
var ErrNotReferral = errors.New("uid is not a tracked referral")

// InviteeDetail is one entry from the affiliate invitee-detail endpoint.
// All numeric fields arrive as strings.
type InviteeDetail struct {
	InviteeLevel    string `json:"inviteeLv"`
	JoinTime        string `json:"joinTime"`
	VolMonth        string `json:"volMonth"`
	TotalCommission string `json:"totalCommission"`
}

// Volume returns the invitee's monthly traded volume, zero when the field
// is absent or malformed.
func (d InviteeDetail) Volume() float64 {
	if d.VolMonth == "" {
		return 0
	}
	v, err := strconv.ParseFloat(d.VolMonth, 64)
	if err != nil {
		return 0
	}
	return v
}

type inviteeDetailResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data []InviteeDetail `json:"data"`
}

type Client struct {
	base       *url.URL
	key        string
	secret     string
	passphrase string

	httpClient *http.Client
	timeClient *http.Client
	cache      *ristretto.Cache
}

func NewClient(baseURL, apiKey, apiSecret, passphrase string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing partner base url: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:            1e4,
		MaxCost:                1e3,
		BufferItems:            64,
		TtlTickerDurationInSec: 60,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		base:       base,
		key:        apiKey,
		secret:     apiSecret,
		passphrase: passphrase,
		httpClient: &http.Client{Timeout: detailTimeout},
		timeClient: &http.Client{Timeout: timeTimeout},
		cache:      cache,
	}, nil
}

// endpoint joins path onto the base URL, keeping any base path prefix.
func (c *Client) endpoint(path string) string {
	return c.base.Scheme + "://" + c.base.Host + c.signedPath(path)
}

// signedPath is the request path as it participates in the signature:
// base path prefix plus endpoint path plus query string.
func (c *Client) signedPath(path string) string {
	return c.base.Path + path
}

// InviteeDetail looks up uid in the affiliate program. ErrNotReferral
// means the partner does not track the uid as a referral; any other error
// is a transport, signing, or decoding failure.
func (c *Client) InviteeDetail(ctx context.Context, uid string) (InviteeDetail, error) {
	path := detailPath + "?uid=" + url.QueryEscape(uid)

	timestamp, signature, err := c.sign(ctx, http.MethodGet, c.signedPath(path), "")
	if err != nil {
		return InviteeDetail{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return InviteeDetail{}, err
	}
	req.Header.Set("API-KEY", c.key)
	req.Header.Set("API-SIGN", signature)
	req.Header.Set("API-TIMESTAMP", timestamp)
	req.Header.Set("API-PASSPHRASE", c.passphrase)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return InviteeDetail{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return InviteeDetail{}, fmt.Errorf("invitee detail returned %s", resp.Status)
	}

	var body inviteeDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return InviteeDetail{}, fmt.Errorf("decoding invitee detail: %w", err)
	}

	if body.Code != successCode || len(body.Data) == 0 {
		return InviteeDetail{}, ErrNotReferral
	}

	return body.Data[0], nil
}

// CachedInviteeDetail is InviteeDetail behind a short TTL cache. It exists
// for the aggregation sweep, where the same uid may be looked up many
// times in a row; verification always calls InviteeDetail directly.
func (c *Client) CachedInviteeDetail(ctx context.Context, uid string) (InviteeDetail, error) {
	if v, ok := c.cache.Get(uid); ok {
		return v.(InviteeDetail), nil
	}

	detail, err := c.InviteeDetail(ctx, uid)
	if err != nil {
		return InviteeDetail{}, err
	}

	c.cache.SetWithTTL(uid, detail, 1, detailCacheTTL)
	return detail, nil
}
