package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire format of the proxied profile and timeline documents. The timeline
// document nests its payload under either "graphql" or "data" depending on
// which endpoint variant the proxy hit.

type profileDocument struct {
	Data struct {
		User *profileUser `json:"user"`
	} `json:"data"`
}

type profileUser struct {
	ID        string `json:"id"`
	IsPrivate bool   `json:"is_private"`
}

type timelineDocument struct {
	GraphQL *timelineContainer `json:"graphql"`
	Data    *timelineContainer `json:"data"`
}

type timelineContainer struct {
	User struct {
		TimelineMedia struct {
			Edges    []timelineEdge `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"has_next_page"`
				EndCursor   string `json:"end_cursor"`
			} `json:"page_info"`
		} `json:"edge_owner_to_timeline_media"`
	} `json:"user"`
}

type timelineEdge struct {
	Node struct {
		Shortcode            string `json:"shortcode"`
		DisplayURL           string `json:"display_url"`
		TakenAtTimestamp     int64  `json:"taken_at_timestamp"`
		AccessibilityCaption string `json:"accessibility_caption"`
		CaptionEdges         struct {
			Edges []struct {
				Node struct {
					Text string `json:"text"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"edge_media_to_caption"`
	} `json:"node"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseProfile decodes a profile document into the account's resolved
// identity.
func (p *Parser) ParseProfile(data []byte) (*Profile, error) {
	var doc profileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile document: %w", err)
	}

	if doc.Data.User == nil || doc.Data.User.ID == "" {
		return nil, nil
	}

	return &Profile{
		UserID:    doc.Data.User.ID,
		IsPrivate: doc.Data.User.IsPrivate,
	}, nil
}

// ParseTimeline decodes one timeline page. Entries whose creation instant is
// not strictly greater than the watermark are excluded: an entry exactly at
// the watermark counts as already seen, and the shortcode dedup in the post
// store is the safety net for ties.
func (p *Parser) ParseTimeline(data []byte, watermark time.Time) ([]Post, *PageInfo, error) {
	var doc timelineDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse timeline document: %w", err)
	}

	container := doc.GraphQL
	if container == nil {
		container = doc.Data
	}
	if container == nil {
		return nil, nil, fmt.Errorf("timeline document has no graphql or data payload")
	}

	media := container.User.TimelineMedia

	posts := make([]Post, 0, len(media.Edges))
	for _, edge := range media.Edges {
		node := edge.Node
		takenAt := time.Unix(node.TakenAtTimestamp, 0).UTC()

		if !takenAt.After(watermark) {
			continue
		}

		post := Post{
			Shortcode:        node.Shortcode,
			ImageURL:         node.DisplayURL,
			ImageDescription: node.AccessibilityCaption,
			TakenAt:          takenAt,
		}
		if len(node.CaptionEdges.Edges) > 0 {
			post.Caption = node.CaptionEdges.Edges[0].Node.Text
		}

		posts = append(posts, post)
	}

	pageInfo := &PageInfo{
		HasNextPage: media.PageInfo.HasNextPage,
		EndCursor:   media.PageInfo.EndCursor,
	}

	return posts, pageInfo, nil
}
