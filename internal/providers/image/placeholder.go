package image

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strings"
)

const placeholderSize = 1024

// PlaceholderSVG renders a deterministic gradient card as an SVG data URI.
func PlaceholderSVG(title, subtitle string, seedParts ...any) string {
	seed := deterministicSeed(append([]any{title, subtitle}, seedParts...)...)
	from, to := "#"+seed[0:6], "#"+seed[6:12]
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">`+
			`<defs><linearGradient id="g" x1="0" y1="0" x2="1" y2="1">`+
			`<stop offset="0%%" stop-color="%[2]s"/><stop offset="100%%" stop-color="%[3]s"/>`+
			`</linearGradient></defs>`+
			`<rect width="100%%" height="100%%" fill="url(#g)"/>`+
			`<text x="50%%" y="46%%" text-anchor="middle" font-family="sans-serif" font-size="48" fill="#ffffff">%[4]s</text>`+
			`<text x="50%%" y="54%%" text-anchor="middle" font-family="sans-serif" font-size="28" fill="#ffffff">%[5]s</text>`+
			`</svg>`,
		placeholderSize, from, to, html.EscapeString(title), html.EscapeString(subtitle),
	)
	return "data:image/svg+xml;utf8," + url.PathEscape(svg)
}

// mockImages returns count distinct placeholders derived from the prompt and index.
func mockImages(title, prompt string, count int) []string {
	images := make([]string, count)
	for i := range images {
		images[i] = PlaceholderSVG(title, fmt.Sprintf("%s • %d", truncateRunes(prompt, 60), i+1), prompt, i)
	}
	return images
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
