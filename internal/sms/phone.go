package sms

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultCountryCode is prefixed to destinations given without one.
const DefaultCountryCode = "+91"

// ErrInvalidPhoneNumber is returned when a phone number is empty or cannot be parsed.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// NormalizeDestination returns phone unchanged when it already carries a '+'
// prefix, otherwise prefixes countryCode (DefaultCountryCode when empty).
// No further validation is done; the provider is the authority on numbers.
func NormalizeDestination(phone, countryCode string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return countryCode + phone
}

// PhoneCountry returns the ISO 3166-1 alpha-2 country code for an E.164
// phone number, or "" if parsing fails.
func PhoneCountry(phone string) string {
	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}

// IsAllowedCountry checks whether the phone's country matches one of the
// allowed country codes. An empty allowed list permits all.
func IsAllowedCountry(phone string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	region := PhoneCountry(phone)
	if region == "" {
		return false
	}
	for _, code := range allowed {
		if strings.EqualFold(code, region) {
			return true
		}
	}
	return false
}
