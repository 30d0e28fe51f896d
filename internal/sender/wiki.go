package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lvanheel/teamdigest/internal/report"
)

// WikiConfig is the output.wiki block of a report definition. Titles maps a
// project scope (or "All") to the wiki page that scope publishes to.
type WikiConfig struct {
	URL      string            `yaml:"url"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Titles   map[string]string `yaml:"titles"`
}

// wikiState tracks progress through the publish handshake. Transitions
// never retry; a failure aborts the channel.
type wikiState int

const (
	stateUnauthenticated wikiState = iota
	stateAuthenticated
	stateTokenAcquired
	statePublished
	stateSkipped
)

// sandboxMarker exempts a page from the idempotency check; sandbox pages
// always republish.
const sandboxMarker = "Sandbox"

// revisionScanLimit caps how far back the idempotency check looks.
const revisionScanLimit = 500

// Wiki publishes a digest to one MediaWiki page via the action API. Before
// editing it scans the page's recent revision comments for the digest
// subject and skips the publish when a match is found, so re-running the
// same window never duplicates a report.
type Wiki struct {
	cfg    WikiConfig
	title  string
	client *http.Client

	state     wikiState
	editToken string

	dryRun  bool
	verbose bool
	diag    io.Writer
	logger  *slog.Logger
}

func newWikiChannels(node yaml.Node, opts Options) ([]Channel, error) {
	var cfg WikiConfig
	if err := node.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("wiki channel config: %w", err)
	}
	if cfg.URL == "" || len(cfg.Titles) == 0 {
		return nil, fmt.Errorf("wiki channel config: url and titles are required")
	}

	scopes := make([]string, 0, len(cfg.Titles))
	for scope := range cfg.Titles {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	channels := make([]Channel, 0, len(scopes))
	for _, scope := range scopes {
		w := &Wiki{
			cfg:     cfg,
			title:   cfg.Titles[scope],
			client:  newWikiHTTPClient(),
			dryRun:  opts.DryRun,
			verbose: opts.Verbose,
			diag:    opts.Diag,
			logger:  opts.Logger,
		}
		channels = append(channels, Channel{Tag: "wiki", Scope: scope, Format: report.FormatWikitext, Sender: w})
	}
	return channels, nil
}

func newWikiHTTPClient() *http.Client {
	// The login handshake hands back session cookies that the token and
	// edit calls must carry.
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: 30 * time.Second, Jar: jar}
}

func (w *Wiki) Name() string {
	return "wiki"
}

type wikiPage struct {
	EditToken string `json:"edittoken"`
	Revisions []struct {
		Comment string `json:"comment"`
	} `json:"revisions"`
}

type wikiResponse struct {
	Login *struct {
		Result string `json:"result"`
		Token  string `json:"token"`
	} `json:"login"`
	Query *struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
	Edit *struct {
		Result string `json:"result"`
	} `json:"edit"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// api posts one action request. Every call carries format=json; the action
// and its parameters follow the MediaWiki request convention.
func (w *Wiki) api(ctx context.Context, params url.Values) (*wikiResponse, error) {
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s (make sure this is the correct API URL): %w", w.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wiki API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result wikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode wiki response: %w", err)
	}
	if w.verbose {
		w.logger.Debug("wiki API call", "action", params.Get("action"), "title", w.title)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("wiki API %s: %s (%s)", params.Get("action"), result.Error.Info, result.Error.Code)
	}
	return &result, nil
}

// login performs the two-step token handshake of the action=login API.
func (w *Wiki) login(ctx context.Context) error {
	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", w.cfg.Username)
	params.Set("lgpassword", w.cfg.Password)

	resp, err := w.api(ctx, params)
	if err != nil {
		return err
	}
	if resp.Login == nil {
		return fmt.Errorf("wiki login: unexpected response shape")
	}
	if resp.Login.Result == "NeedToken" {
		params.Set("lgtoken", resp.Login.Token)
		resp, err = w.api(ctx, params)
		if err != nil {
			return err
		}
		if resp.Login == nil {
			return fmt.Errorf("wiki login: unexpected response shape")
		}
	}
	if resp.Login.Result != "Success" {
		return fmt.Errorf("wiki login failed for %s: %s", w.cfg.Username, resp.Login.Result)
	}
	w.state = stateAuthenticated
	return nil
}

// published scans the page's recent revision comments for the subject.
// Pages carrying the sandbox marker always report unpublished.
func (w *Wiki) published(ctx context.Context, subject string) (bool, error) {
	if strings.Contains(w.title, sandboxMarker) {
		return false, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", w.title)
	params.Set("prop", "info|revisions")
	params.Set("rvprop", "comment")
	params.Set("rvlimit", fmt.Sprint(revisionScanLimit))

	resp, err := w.api(ctx, params)
	if err != nil {
		return false, err
	}
	if resp.Query == nil {
		return false, nil
	}
	for _, page := range resp.Query.Pages {
		for _, rev := range page.Revisions {
			if strings.Contains(rev.Comment, subject) {
				return true, nil
			}
		}
	}
	return false, nil
}

// fetchEditToken acquires a write token scoped to the page.
func (w *Wiki) fetchEditToken(ctx context.Context) error {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", w.title)
	params.Set("prop", "info|revisions")
	params.Set("intoken", "edit")

	resp, err := w.api(ctx, params)
	if err != nil {
		return err
	}
	if resp.Query == nil {
		return fmt.Errorf("wiki edit token: unexpected response shape")
	}
	for _, page := range resp.Query.Pages {
		if page.EditToken != "" {
			w.editToken = page.EditToken
			w.state = stateTokenAcquired
			return nil
		}
	}
	return fmt.Errorf("wiki edit token missing for %q (check edit rights)", w.title)
}

func (w *Wiki) edit(ctx context.Context, subject, body string) error {
	params := url.Values{}
	params.Set("action", "edit")
	params.Set("title", w.title)
	params.Set("section", "0")
	params.Set("sectiontitle", "")
	params.Set("summary", subject)
	params.Set("text", body)
	params.Set("token", w.editToken)

	resp, err := w.api(ctx, params)
	if err != nil {
		return err
	}
	if resp.Edit == nil || resp.Edit.Result != "Success" {
		return fmt.Errorf("wiki edit of %q did not succeed", w.title)
	}
	w.state = statePublished
	return nil
}

func (w *Wiki) Send(ctx context.Context, d *report.Digest) error {
	w.state = stateUnauthenticated

	if err := w.login(ctx); err != nil {
		return err
	}

	done, err := w.published(ctx, d.Subject)
	if err != nil {
		return err
	}
	if done {
		w.state = stateSkipped
		return fmt.Errorf("%q already carries %q: %w", w.title, d.Subject, ErrAlreadyPublished)
	}

	if w.dryRun {
		w.logger.Info("dry run, writing article to diagnostic output", "title", w.title)
		fmt.Fprintf(w.diag, "Wiki Article: %s\nSummary: %s\nText:\n%s\n", w.title, d.Subject, d.Body)
		return nil
	}

	if err := w.fetchEditToken(ctx); err != nil {
		return err
	}

	w.logger.Info("updating article", "title", w.title, "summary", d.Subject)
	if err := w.edit(ctx, d.Subject, d.Body); err != nil {
		return err
	}
	w.logger.Info("added status update", "title", w.title)
	return nil
}
