package scrape

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// exportedCookie is one entry of a browser cookie-export JSON file.
type exportedCookie struct {
	Domain         string  `json:"domain"`
	ExpirationDate float64 `json:"expirationDate"`
	HTTPOnly       bool    `json:"httpOnly"`
	Name           string  `json:"name"`
	Path           string  `json:"path"`
	SameSite       string  `json:"sameSite"`
	Secure         bool    `json:"secure"`
	URL            string  `json:"url"`
	Value          string  `json:"value"`
}

// CookieFileError reports an unreadable or malformed cookie file.
type CookieFileError struct {
	Path string
	Err  error
}

func (e *CookieFileError) Error() string {
	return fmt.Sprintf("cookie file %s: %v", e.Path, e.Err)
}

func (e *CookieFileError) Unwrap() error { return e.Err }

// LoadCookies reads a cookie-export file into browser cookie parameters.
func LoadCookies(path string) ([]*network.CookieParam, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CookieFileError{Path: path, Err: err}
	}
	defer f.Close()

	cookies, err := ParseCookies(f)
	if err != nil {
		return nil, &CookieFileError{Path: path, Err: err}
	}
	return cookies, nil
}

// ParseCookies decodes a JSON array of exported cookies. Entries without a
// name are skipped.
func ParseCookies(r io.Reader) ([]*network.CookieParam, error) {
	var exported []exportedCookie
	if err := json.NewDecoder(r).Decode(&exported); err != nil {
		return nil, err
	}

	params := make([]*network.CookieParam, 0, len(exported))
	for _, c := range exported {
		if c.Name == "" {
			continue
		}
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: sameSite(c.SameSite),
		}
		if c.ExpirationDate > 0 {
			sec, frac := math.Modf(c.ExpirationDate)
			expires := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params, nil
}

// sameSite maps export-format values onto the protocol enum. Unknown values
// leave the attribute unset.
func sameSite(value string) network.CookieSameSite {
	switch strings.ToLower(value) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none", "no_restriction":
		return network.CookieSameSiteNone
	}
	return ""
}
