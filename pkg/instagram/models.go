package instagram

// Response represents the top-level response from the Instagram API
type Response struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            Data   `json:"data"`
	Status          string `json:"status"`
}

// Data wraps the user information in the response
type Data struct {
	User *User `json:"user"`
}

// User represents an Instagram user profile
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	IsPrivate         bool      `json:"is_private"`
	EdgeReelsTimeline ReelsEdge `json:"edge_felix_video_timeline"`
}

// ReelsEdge contains the user's reel listing
type ReelsEdge struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []Edge   `json:"edges"`
}

// PageInfo contains pagination information
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// Edge wraps a single reel node
type Edge struct {
	Node Node `json:"node"`
}

// Node represents a single reel item
type Node struct {
	ID               string         `json:"id"`
	Shortcode        string         `json:"shortcode"`
	IsVideo          bool           `json:"is_video"`
	VideoURL         string         `json:"video_url"`
	VideoViewCount   int            `json:"video_view_count"`
	VideoDuration    float64        `json:"video_duration"`
	TakenAtTimestamp int64          `json:"taken_at_timestamp"`
	Dimensions       Dimensions     `json:"dimensions"`
	EdgeLikedBy      EdgeCount      `json:"edge_liked_by"`
	EdgeMediaComment EdgeCount      `json:"edge_media_to_comment"`
	VideoVersions    []VideoVersion `json:"video_versions"`
}

// Dimensions holds the pixel size of a reel
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EdgeCount wraps a count field
type EdgeCount struct {
	Count int `json:"count"`
}

// VideoVersion is one available rendition of a reel
type VideoVersion struct {
	Type   int    `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}
