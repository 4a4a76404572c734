package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Google is the Google Calendar backend.
type Google struct {
	svc *gcal.Service
}

// OAuthConfig reads the OAuth client from credentialsFile.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// NewGoogle builds the backend from the OAuth client file and a previously
// authorised token. Refreshed tokens are written back to tokenFile.
func NewGoogle(ctx context.Context, credentialsFile, tokenFile string, log *slog.Logger) (*Google, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := readToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token (authorise at %s): %w",
			cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline), err)
	}

	src := &savingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
		log:  log,
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &Google{svc: svc}, nil
}

// ExchangeCode trades an authorisation code for a token and stores it.
func ExchangeCode(ctx context.Context, credentialsFile, tokenFile, code string) error {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return writeToken(tokenFile, tok)
}

func (g *Google) ListEvents(ctx context.Context, q Query) (Page, error) {
	call := g.svc.Events.List(q.CalendarID).
		Context(ctx).
		TimeMin(q.TimeMin.Format(time.RFC3339)).
		TimeMax(q.TimeMax.Format(time.RFC3339)).
		SingleEvents(q.SingleEvents)
	if q.MaxResults > 0 {
		call = call.MaxResults(int64(q.MaxResults))
	}
	if q.OrderByStartTime {
		call = call.OrderBy("startTime")
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}
	res, err := call.Do()
	if err != nil {
		return Page{}, classify(err)
	}
	page := Page{NextPageToken: res.NextPageToken, Events: make([]Event, 0, len(res.Items))}
	for _, item := range res.Items {
		page.Events = append(page.Events, fromGoogle(item))
	}
	return page, nil
}

func (g *Google) InsertEvent(ctx context.Context, calendarID string, d EventDraft) (Event, error) {
	ev := &gcal.Event{
		Summary:     d.Summary,
		Description: d.Description,
		Start:       &gcal.EventDateTime{DateTime: d.Start.Format(time.RFC3339), TimeZone: d.TimeZone},
		End:         &gcal.EventDateTime{DateTime: d.End.Format(time.RFC3339), TimeZone: d.TimeZone},
		Reminders:   &gcal.EventReminders{UseDefault: true},
	}
	if len(d.Reminders) > 0 {
		overrides := make([]*gcal.EventReminder, 0, len(d.Reminders))
		for _, m := range d.Reminders {
			overrides = append(overrides, &gcal.EventReminder{Method: "popup", Minutes: int64(m)})
		}
		ev.Reminders = &gcal.EventReminders{
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}
	created, err := g.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return Event{}, classify(err)
	}
	return fromGoogle(created), nil
}

func fromGoogle(item *gcal.Event) Event {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Link:        item.HtmlLink,
	}
	if item.Start != nil {
		ev.Start = Boundary{DateTime: item.Start.DateTime, Date: item.Start.Date, TimeZone: item.Start.TimeZone}
	}
	if item.End != nil {
		ev.End = Boundary{DateTime: item.End.DateTime, Date: item.End.Date, TimeZone: item.End.TimeZone}
	}
	return ev
}

// classify marks rate limits and server errors as temporary.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500) {
		return Temporary(err)
	}
	return err
}

type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	log  *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := writeToken(s.path, tok); err != nil {
			s.log.Warn("could not save refreshed token", "path", s.path, "err", err)
		}
	}
	return tok, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
