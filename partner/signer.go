package partner

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
)

const timePath = "/public/time"

// The partner rejects signatures whose timestamp drifts from its own
// clock, so the signing timestamp always comes from its time endpoint,
// never from the local clock.

// signWithTimestamp is the pure half of signing: fixed inputs always
// produce the same signature.
func signWithTimestamp(secret, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// formatTimestamp renders epoch milliseconds the way the partner expects
// signing timestamps: ISO-8601 UTC with millisecond precision.
func formatTimestamp(epochMillis int64) string {
	return time.UnixMilli(epochMillis).UTC().Format("2006-01-02T15:04:05.000Z")
}

type serverTimeResponse struct {
	Code string `json:"code"`
	Data []struct {
		Ts string `json:"ts"`
	} `json:"data"`
}

func (c *Client) serverTime(ctx context.Context) (string, error) {
	var timestamp string

	err := retry.Do(func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint(timePath), nil)
		if err != nil {
			return err
		}

		resp, err := c.timeClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("time endpoint returned %s", resp.Status)
		}

		var body serverTimeResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decoding time response: %w", err)
		}
		if len(body.Data) == 0 {
			return fmt.Errorf("time response carried no data")
		}

		millis, err := strconv.ParseInt(body.Data[0].Ts, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing server timestamp %q: %w", body.Data[0].Ts, err)
		}

		timestamp = formatTimestamp(millis)
		return nil
	},
		retry.Attempts(2),
		retry.Delay(300*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return "", err
	}

	return timestamp, nil
}

// sign produces the timestamp and signature headers for a partner API
// call. Signing fails when the time endpoint is unreachable; there is no
// local-clock fallback.
func (c *Client) sign(ctx context.Context, method, path, body string) (timestamp, signature string, err error) {
	timestamp, err = c.serverTime(ctx)
	if err != nil {
		return "", "", fmt.Errorf("fetching server time: %w", err)
	}
	return timestamp, signWithTimestamp(c.secret, timestamp, method, path, body), nil
}
