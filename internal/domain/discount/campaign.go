package discount

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrInvalidCampaignToken is reported when a client supplied campaign token
// cannot be decoded or does not match a registered campaign. It never aborts
// order placement; the token simply grants no discount.
var ErrInvalidCampaignToken = errors.New("invalid campaign token")

// Campaign is a time-boxed promotional discount.
type Campaign struct {
	// ValidOn is the validity timestamp in Unix milliseconds. A token is only
	// accepted when it carries exactly this value.
	ValidOn int64
	Percent int
}

// Campaigns is an immutable code to campaign table.
type Campaigns struct {
	byCode map[string]Campaign
}

// NewCampaigns copies the given table.
func NewCampaigns(table map[string]Campaign) Campaigns {
	byCode := make(map[string]Campaign, len(table))
	for code, c := range table {
		byCode[code] = c
	}
	return Campaigns{byCode: byCode}
}

// Lookup returns the campaign registered for code.
func (c Campaigns) Lookup(code string) (Campaign, bool) {
	campaign, ok := c.byCode[code]
	return campaign, ok
}

var (
	cet = time.FixedZone("CET", 60*60)

	defaultCampaigns = NewCampaigns(map[string]Campaign{
		"WMNSDY2019": {ValidOn: validOn(2019, time.March, 8, cet), Percent: 75},
		"WMNSDY2020": {ValidOn: validOn(2020, time.March, 8, cet), Percent: 60},
		"WMNSDY2021": {ValidOn: validOn(2021, time.March, 8, cet), Percent: 60},
		"WMNSDY2022": {ValidOn: validOn(2022, time.March, 8, cet), Percent: 60},
		"WMNSDY2023": {ValidOn: validOn(2023, time.March, 8, cet), Percent: 60},
		"ORANGE2020": {ValidOn: validOn(2020, time.May, 4, time.UTC), Percent: 50},
		"ORANGE2021": {ValidOn: validOn(2021, time.May, 4, time.UTC), Percent: 40},
		"ORANGE2022": {ValidOn: validOn(2022, time.May, 4, time.UTC), Percent: 40},
		"ORANGE2023": {ValidOn: validOn(2023, time.May, 4, time.UTC), Percent: 40},
	})
)

func validOn(year int, month time.Month, day int, loc *time.Location) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, loc).UnixMilli()
}

// DefaultCampaigns returns the built-in campaign table.
func DefaultCampaigns() Campaigns {
	return defaultCampaigns
}

// EncodeCampaignToken builds the client token for a campaign code and
// validity timestamp.
func EncodeCampaignToken(code string, validOn int64) string {
	return base64.StdEncoding.EncodeToString([]byte(code + "-" + strconv.FormatInt(validOn, 10)))
}

// DecodeCampaignToken splits a base64 token into its code and timestamp.
func DecodeCampaignToken(token string) (code string, ts int64, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(token); err != nil {
			return "", 0, errors.Wrap(ErrInvalidCampaignToken, "decode base64")
		}
	}

	parts := strings.Split(string(raw), "-")
	if len(parts) < 2 {
		return "", 0, errors.Wrap(ErrInvalidCampaignToken, "missing separator")
	}
	ts, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, errors.Wrap(ErrInvalidCampaignToken, "parse timestamp")
	}
	return parts[0], ts, nil
}
