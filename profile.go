package gate

import (
	"context"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers written without a country code
const DefaultPhoneRegion = "US"

// ProfileChecker reports whether the mandatory profile fields are on file
type ProfileChecker struct {
	records UserRecords
	logger  Logger
}

// NewProfileChecker creates a checker over the record store
func NewProfileChecker(records UserRecords, logger Logger) *ProfileChecker {
	return &ProfileChecker{
		records: records,
		logger:  normalizeLogger(logger),
	}
}

// IsProfileComplete is false when the record is missing, the lookup
// fails, or the phone number is empty.
func (c *ProfileChecker) IsProfileComplete(ctx context.Context, userID string) bool {
	if userID == "" || c.records == nil {
		return false
	}

	user, err := c.records.FindUserByID(ctx, userID)
	if err != nil {
		c.logger.Warn("profile lookup failed", "user_id", userID, "error", err)
		return false
	}

	return user.HasPhoneNumber()
}

// NormalizePhone parses raw in the given region and returns it in E.164
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhoneNumber
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", wrapError(ErrInvalidPhoneNumber, "parse_phone", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhoneNumber.Clone().WithMetadata(map[string]any{
			"phone": raw,
		})
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
