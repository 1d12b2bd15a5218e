package agentloop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const maxFetchBytes = 5 << 20

var blankLines = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)

// Fetch retrieves rawURL and returns its body as text. HTML pages are
// reduced to their visible text.
func (e *LocalExecutionEnvironment) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "codeagent/1.0")
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	result := &FetchResult{
		URL:         u.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	text := string(body)
	if strings.Contains(result.ContentType, "html") {
		text, err = htmlToText(text)
		if err != nil {
			return nil, err
		}
	}

	if e.maxFetchChars > 0 && utf8.RuneCountInString(text) > e.maxFetchChars {
		text = string([]rune(text)[:e.maxFetchChars])
		result.Truncated = true
	}
	result.Text = text
	return result, nil
}

// htmlToText drops non-visible elements and collapses blank runs.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Wrap(err, "parse html")
	}
	doc.Find("script, style, noscript, template, svg, head").Remove()
	doc.Find("br, p, div, li, h1, h2, h3, h4, h5, h6, tr, pre").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := doc.Text()
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}
