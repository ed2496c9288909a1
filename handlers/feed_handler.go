package handlers

import (
	"fmt"
	"net/http"
	"time"

	"history-guide/utils/logger"

	"github.com/gorilla/feeds"
	"go.uber.org/zap"
)

const feedSize = 20

// FeedHandler serves an RSS feed of the most recently added POIs.
type FeedHandler struct {
	POIs        POIService
	BaseURL     string
	AuthorName  string
	AuthorEmail string
	CacheMaxAge time.Duration
}

func (h FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pois, err := h.POIs.LatestPOIs(r.Context(), feedSize)
	if err != nil {
		logger.Zlog.Error("Unable to fetch POIs for feed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	feed := &feeds.Feed{
		Title:       "Swansea History Guide",
		Link:        &feeds.Link{Href: h.BaseURL + "/pois"},
		Description: "Points of interest recently added to the history guide",
		Author:      &feeds.Author{Name: h.AuthorName, Email: h.AuthorEmail},
		Created:     time.Now(),
	}
	for _, poi := range pois {
		item := &feeds.Item{
			Id:          poi.ID,
			IsPermaLink: "false",
			Title:       poi.Name,
			Link:        &feeds.Link{Href: h.BaseURL + "/pois/" + poi.ID},
			Description: poi.Description,
			Created:     poi.CreatedAt,
		}
		if poi.ImageURL != "" {
			item.Enclosure = &feeds.Enclosure{Url: poi.ImageURL, Type: "image/jpeg", Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		logger.Zlog.Error("Unable to format feed as RSS", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(h.CacheMaxAge.Seconds())))
	if _, err := w.Write([]byte(rss)); err != nil {
		logger.Zlog.Warn("Unable to write feed to response", zap.Error(err))
	}
}
