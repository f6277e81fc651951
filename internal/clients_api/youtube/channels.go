package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/infra/retry"

	"go.uber.org/zap"
)

type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindQuota     ErrorKind = "quota"
	KindHTTP      ErrorKind = "http"
	KindMalformed ErrorKind = "malformed"
	KindNotFound  ErrorKind = "not_found"
)

// FetchError is any failure to obtain statistics for one channel.
type FetchError struct {
	Channel string // "@handle" or channel ID
	Kind    ErrorKind
	Status  int // HTTP status for quota and http kinds
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetch %s: %s", e.Channel, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	} else if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsKind reports whether err is a FetchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// quotaReasons are the 403 reasons that mean the key is out of quota.
var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
	"rateLimitExceeded":  true,
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// classify turns a transport error into a FetchError for channel.
func classify(channel string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var he *retry.HTTPError
	if !errors.As(err, &he) {
		return &FetchError{Channel: channel, Kind: KindNetwork, Err: err}
	}

	out := &FetchError{Channel: channel, Kind: KindHTTP, Status: he.StatusCode, Err: err}
	var apiErr apiErrorResponse
	if json.Unmarshal(he.Body, &apiErr) == nil {
		out.Message = apiErr.Error.Message
		if he.StatusCode == 403 {
			for _, e := range apiErr.Error.Errors {
				if quotaReasons[e.Reason] {
					out.Kind = KindQuota
					break
				}
			}
		}
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(string(he.Body))
	}
	return out
}

type channelListResponse struct {
	Items []channelItem `json:"items"`
}

type channelItem struct {
	ID      string `json:"id"`
	Snippet *struct {
		Title     string `json:"title"`
		CustomURL string `json:"customUrl"`
	} `json:"snippet"`
	Statistics *struct {
		ViewCount             *string `json:"viewCount"`
		SubscriberCount       *string `json:"subscriberCount"`
		HiddenSubscriberCount bool    `json:"hiddenSubscriberCount"`
		VideoCount            *string `json:"videoCount"`
	} `json:"statistics"`
}

// ChannelStatistics is the parsed statistics block of one channel.
type ChannelStatistics struct {
	ID                string
	Title             string
	Subscribers       uint64
	Views             uint64
	Videos            uint64
	HiddenSubscribers bool
}

// ResolveHandle maps a handle (with or without @) to its channel ID. Costs one quota unit.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	label := "@" + handle

	params := url.Values{}
	params.Set("part", "id")
	params.Set("forHandle", handle)

	body, err := c.MakeRequest(ctx, "/channels", params)
	if err != nil {
		return "", classify(label, err)
	}

	var resp channelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &FetchError{Channel: label, Kind: KindMalformed, Message: "invalid JSON", Err: err}
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		return "", &FetchError{Channel: label, Kind: KindNotFound, Message: "no channel for handle"}
	}

	logging.LogDebug("Resolved handle", zap.String("handle", label), zap.String("channel_id", resp.Items[0].ID))
	return resp.Items[0].ID, nil
}

// ChannelStatistics fetches the current counters of channel id. Costs one quota unit.
func (c *Client) ChannelStatistics(ctx context.Context, id string) (*ChannelStatistics, error) {
	params := url.Values{}
	params.Set("part", "statistics,snippet")
	params.Set("id", id)

	body, err := c.MakeRequest(ctx, "/channels", params)
	if err != nil {
		return nil, classify(id, err)
	}

	var resp channelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Channel: id, Kind: KindMalformed, Message: "invalid JSON", Err: err}
	}
	if len(resp.Items) == 0 {
		return nil, &FetchError{Channel: id, Kind: KindNotFound, Message: "channel not found"}
	}

	item := resp.Items[0]
	if item.Statistics == nil {
		return nil, &FetchError{Channel: id, Kind: KindMalformed, Message: "missing statistics"}
	}

	out := &ChannelStatistics{ID: item.ID, HiddenSubscribers: item.Statistics.HiddenSubscriberCount}
	if out.ID == "" {
		out.ID = id
	}
	if item.Snippet != nil {
		out.Title = item.Snippet.Title
	}

	parse := func(field string, v *string) (uint64, error) {
		if v == nil {
			return 0, &FetchError{Channel: id, Kind: KindMalformed, Message: "missing " + field}
		}
		n, err := strconv.ParseUint(strings.TrimSpace(*v), 10, 64)
		if err != nil {
			return 0, &FetchError{Channel: id, Kind: KindMalformed, Message: fmt.Sprintf("invalid %s %q", field, *v), Err: err}
		}
		return n, nil
	}

	if out.Views, err = parse("viewCount", item.Statistics.ViewCount); err != nil {
		return nil, err
	}
	if out.Videos, err = parse("videoCount", item.Statistics.VideoCount); err != nil {
		return nil, err
	}
	if out.HiddenSubscribers {
		logging.LogWarn("Channel hides its subscriber count, recording 0", zap.String("channel_id", out.ID))
	} else if out.Subscribers, err = parse("subscriberCount", item.Statistics.SubscriberCount); err != nil {
		return nil, err
	}

	return out, nil
}
