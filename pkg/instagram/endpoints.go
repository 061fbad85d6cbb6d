package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// ReelsEndpoint is the endpoint pattern for user reels
	ReelsEndpoint = "/graphql/query/"

	// ReelsQueryHash is the query hash for fetching a user's reels
	ReelsQueryHash = "58b6785bea111c67129decbe6a448951"

	// DefaultReelsLimit is the default number of reels to fetch per request
	DefaultReelsLimit = 12

	// MaxReelsLimit is the maximum number of reels that can be fetched per request
	MaxReelsLimit = 50
)

// GetProfileURL constructs the URL for fetching a user's profile
func GetProfileURL(baseURL, username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", baseURL, ProfileEndpoint, params.Encode())
}

// GetReelsURL constructs the URL for fetching a user's reels with pagination
func GetReelsURL(baseURL, userID, after string) string {
	return GetReelsURLWithLimit(baseURL, userID, after, DefaultReelsLimit)
}

// GetReelsURLWithLimit constructs the URL for fetching a user's reels with a custom page size
func GetReelsURLWithLimit(baseURL, userID, after string, limit int) string {
	if limit <= 0 {
		limit = DefaultReelsLimit
	} else if limit > MaxReelsLimit {
		limit = MaxReelsLimit
	}

	params := url.Values{}
	params.Set("query_hash", ReelsQueryHash)
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, limit, after))

	return fmt.Sprintf("%s%s?%s", baseURL, ReelsEndpoint, params.Encode())
}

// GetReelURL constructs the public URL for a reel
func GetReelURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/reel/%s/", BaseURL, shortcode)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips the leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	if username[0] == '@' {
		username = username[1:]
	}

	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
