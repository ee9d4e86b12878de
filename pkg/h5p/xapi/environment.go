package xapi

import (
	"strconv"
	"time"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
)

// ContentInfo is what the host knows about one piece of content.
type ContentInfo struct {
	URL   string `yaml:"url" json:"url"`
	Title string `yaml:"title" json:"title"`
}

// User is the signed-in user.
type User struct {
	Name string `yaml:"name" json:"name"`
	Mail string `yaml:"mail" json:"mail"`
}

// Environment carries the host settings statements are built from.
// A nil *Environment behaves like an empty one.
type Environment struct {
	// SiteURL is the account home page and the fallback content URL base.
	SiteURL string

	// Contents is keyed by ContentKey(contentID).
	Contents map[string]ContentInfo

	// User is nil for anonymous visitors.
	User *User

	// Store persists the anonymous actor id. Nil means storage is unavailable.
	Store storage.Store

	// Now defaults to time.Now.
	Now func() time.Time
}

// ContentKey returns the Contents key for a content id.
func ContentKey(contentID int64) string {
	return "cid-" + strconv.FormatInt(contentID, 10)
}

// Content returns the registered info for contentID.
func (env *Environment) Content(contentID int64) (ContentInfo, bool) {
	if env == nil || env.Contents == nil {
		return ContentInfo{}, false
	}
	c, ok := env.Contents[ContentKey(contentID)]
	return c, ok
}

// ContentURL returns the activity id for contentID: the registered URL, or
// <SiteURL>/content/<id> when the content is not registered.
func (env *Environment) ContentURL(contentID int64) string {
	if c, ok := env.Content(contentID); ok && c.URL != "" {
		return c.URL
	}
	site := ""
	if env != nil {
		site = env.SiteURL
	}
	return site + "/content/" + strconv.FormatInt(contentID, 10)
}

func (env *Environment) now() time.Time {
	if env == nil || env.Now == nil {
		return time.Now()
	}
	return env.Now()
}
