package locate

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/newsfold/core"
)

var (
	dataImageRegex = regexp.MustCompile(
		`(?is)<img[^>]+src=["'](data:image/(png|jpeg|jpg|gif|webp);base64,([^"']+))["'][^>]*>`)
	remoteImageRegex = regexp.MustCompile(
		`(?is)<img[^>]+src=["'](https://[^"']+\.(?:png|jpe?g|gif|webp)(?:\?[^"']*)?)["'][^>]*>`)
)

// imageExtensions are the suffixes kept as-is for remote images.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// Images returns every embedded and remote image tag, sorted by start offset.
func Images(src string) []core.ImageRef {
	var refs []core.ImageRef

	for _, m := range dataImageRegex.FindAllStringSubmatchIndex(src, -1) {
		subtype := strings.ToLower(src[m[4]:m[5]])
		refs = append(refs, core.ImageRef{
			Kind:    core.Embedded,
			Subtype: subtype,
			Payload: src[m[6]:m[7]],
			Ext:     EmbeddedExt(subtype),
			Start:   m[0],
			End:     m[1],
		})
	}

	for _, m := range remoteImageRegex.FindAllStringSubmatchIndex(src, -1) {
		raw := html.UnescapeString(src[m[2]:m[3]])
		refs = append(refs, core.ImageRef{
			Kind:  core.Remote,
			URL:   raw,
			Ext:   RemoteExt(raw),
			Start: m[0],
			End:   m[1],
		})
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Start < refs[j].Start
	})
	return refs
}

// EmbeddedExt maps a data URL image subtype to a file extension.
func EmbeddedExt(subtype string) string {
	switch subtype {
	case "png":
		return ".png"
	case "jpeg", "jpg":
		return ".jpg"
	default:
		return "." + subtype
	}
}

// RemoteExt returns the lowercased path suffix of an image URL, ignoring the
// query string. Unrecognized suffixes fall back to ".png".
func RemoteExt(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	if !imageExtensions[ext] {
		return ".png"
	}
	return ext
}
