package scoring

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/streamscout/internal/domain/model"
)

const (
	steamSearchURL = "https://store.steampowered.com/search/?term="
	epicSearchURL  = "https://store.epicgames.com/en-US/browse?q="
)

var freeToPlay = map[string]struct{}{
	"league of legends": {},
	"valorant":          {},
	"fortnite":          {},
	"apex legends":      {},
	"dota 2":            {},
	"counter-strike 2":  {},
	"team fortress 2":   {},
	"warframe":          {},
	"path of exile":     {},
	"lost ark":          {},
	"marvel rivals":     {},
}

// PurchaseLinks builds store search links for a game name.
func PurchaseLinks(name string) model.PurchaseLinks {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := freeToPlay[key]; ok {
		return model.PurchaseLinks{Free: true}
	}
	return model.PurchaseLinks{
		Steam: steamSearchURL + url.QueryEscape(name),
		Epic:  epicSearchURL + url.PathEscape(name),
	}
}

// BoxArt fills the {width}/{height} placeholders of an artwork template.
func BoxArt(template string, width, height int) string {
	if template == "" {
		return ""
	}
	return strings.NewReplacer(
		"{width}", strconv.Itoa(width),
		"{height}", strconv.Itoa(height),
	).Replace(template)
}
