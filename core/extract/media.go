package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// mediaPathRe pulls the content hash out of user-content URLs such as
// /4/patreon-media/p/post/12345/0a1b2c.../eyJ3Ijo2MjB9/1.jpg
var mediaPathRe = regexp.MustCompile(`/p/[a-z_]+/\d+/([0-9A-Za-z]{16,})/`)

// onDomain reports whether raw is hosted on domain or one of its subdomains.
func onDomain(raw, domain string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// mediaID derives a stable identifier for an image: the explicit data
// attribute when present, else the hash segment of the URL path, else the
// file name.
func mediaID(dataAttr, raw string) string {
	if dataAttr != "" {
		return dataAttr
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if m := mediaPathRe.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	if base := path.Base(u.Path); base != "." && base != "/" {
		return base
	}
	return raw
}
