// Package extractor turns a username into its normalized reel metadata,
// walking the paginated timeline one page at a time.
package extractor

import (
	"context"

	"reelscraper/pkg/instagram"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

// Extractor fetches and normalizes all reels for an account
type Extractor struct {
	client *instagram.Client
	logger logger.Logger
}

// New creates a new Extractor
func New(client *instagram.Client, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{
		client: client,
		logger: log,
	}
}

// Extract returns every reel on the account's timeline, in timeline order.
// When an error interrupts pagination, the reels collected so far are
// returned alongside the error so callers can keep partial progress.
func (e *Extractor) Extract(ctx context.Context, username string) ([]models.Reel, error) {
	profile, err := e.client.FetchUserProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	user := profile.Data.User
	reels := e.collectReels(username, user.EdgeReelsTimeline.Edges)

	pageInfo := user.EdgeReelsTimeline.PageInfo
	for pageInfo.HasNextPage {
		if err := ctx.Err(); err != nil {
			return reels, err
		}

		page, err := e.client.FetchUserReels(ctx, user.ID, pageInfo.EndCursor)
		if err != nil {
			return reels, err
		}

		timeline := page.Data.User.EdgeReelsTimeline
		reels = append(reels, e.collectReels(username, timeline.Edges)...)
		pageInfo = timeline.PageInfo
	}

	e.logger.DebugWithFields("extracted reels", map[string]interface{}{
		"username": username,
		"count":    len(reels),
	})

	return reels, nil
}

// collectReels normalizes a page of timeline edges, skipping anything
// that is not a video or has no shortcode.
func (e *Extractor) collectReels(username string, edges []instagram.Edge) []models.Reel {
	reels := make([]models.Reel, 0, len(edges))
	for _, edge := range edges {
		node := edge.Node
		if !node.IsVideo {
			continue
		}
		if node.Shortcode == "" {
			e.logger.DebugWithFields("skipping node without shortcode", map[string]interface{}{
				"username": username,
				"node_id":  node.ID,
			})
			continue
		}
		reels = append(reels, normalizeNode(username, node))
	}
	return reels
}

func normalizeNode(username string, node instagram.Node) models.Reel {
	url := node.VideoURL
	if url == "" {
		url = instagram.GetReelURL(node.Shortcode)
	}

	qualities := len(node.VideoVersions)
	if qualities == 0 {
		qualities = 1
	}

	return models.Reel{
		Shortcode:          node.Shortcode,
		URL:                url,
		Username:           username,
		Likes:              node.EdgeLikedBy.Count,
		Comments:           node.EdgeMediaComment.Count,
		Views:              node.VideoViewCount,
		PostedTime:         node.TakenAtTimestamp,
		VideoDuration:      node.VideoDuration,
		NumbersOfQualities: qualities,
		Width:              node.Dimensions.Width,
		Height:             node.Dimensions.Height,
	}
}
