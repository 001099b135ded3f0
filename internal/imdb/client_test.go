package imdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

const inceptionResponse = `{
  "d": [
    {"id": "/name/nm0634240", "l": "Christopher Nolan", "qid": ""},
    {"id": "tt1375666", "l": "Inception", "y": 2010, "qid": "movie",
     "i": {"imageUrl": "https://m.media-amazon.com/images/inception.jpg", "width": 1000}},
    {"id": "tt5295894", "l": "Inception: The Cobol Job", "y": 2010, "qid": "videoGame"}
  ],
  "q": "inception"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithRateInterval(0))
}

func fixedResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestClient_RequestPath(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		_, _ = w.Write([]byte(inceptionResponse))
	})

	if _, err := client.LookUp(context.Background(), "Breaking Bad"); err != nil {
		t.Fatalf("LookUp failed: %v", err)
	}
	if gotPath := <-paths; gotPath != "/Breaking Bad.json" {
		t.Errorf("unexpected path: %q", gotPath)
	}
}

func TestClient_FirstTitleID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, fixedResponse(inceptionResponse))

	id, err := client.FirstTitleID(context.Background(), "inception")
	if err != nil {
		t.Fatalf("FirstTitleID failed: %v", err)
	}
	if id != "tt1375666" {
		t.Errorf("expected tt1375666, got %s", id)
	}
}

func TestClient_LookUp(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, fixedResponse(inceptionResponse))

	ids, err := client.LookUp(context.Background(), "inception")
	if err != nil {
		t.Fatalf("LookUp failed: %v", err)
	}
	if strings.Join(ids, ",") != "tt1375666,tt5295894" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestClient_TitleInfo(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, fixedResponse(inceptionResponse))

	title, err := client.TitleInfo(context.Background(), "inception")
	if err != nil {
		t.Fatalf("TitleInfo failed: %v", err)
	}

	want := Title{
		ID:       "tt1375666",
		Title:    "Inception",
		Year:     2010,
		Type:     "movie",
		URL:      "https://www.imdb.com/title/tt1375666/",
		ImageURL: "https://m.media-amazon.com/images/inception.jpg",
	}
	if *title != want {
		t.Errorf("unexpected title:\n got: %+v\nwant: %+v", *title, want)
	}
}

func TestClient_TitleImage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, fixedResponse(`{"d": [{"id": "tt1375666", "i": {"imageUrl": "https://img/x.jpg"}}]}`))

	image, err := client.TitleImage(context.Background(), "tt1375666")
	if err != nil {
		t.Fatalf("TitleImage failed: %v", err)
	}
	if image != "https://img/x.jpg" {
		t.Errorf("unexpected image: %s", image)
	}
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		call func(*Client) error
	}{
		{
			name: "no results",
			body: `{"d": []}`,
			call: func(c *Client) error {
				_, err := c.FirstTitleID(context.Background(), "zzz")
				return err
			},
		},
		{
			name: "no title results",
			body: `{"d": [{"id": "/name/nm1", "l": "Somebody"}]}`,
			call: func(c *Client) error {
				_, err := c.LookUp(context.Background(), "somebody")
				return err
			},
		},
		{
			name: "no title kind",
			body: `{"d": [{"id": "tt1", "l": "Episode", "qid": "tvEpisode"}]}`,
			call: func(c *Client) error {
				_, err := c.TitleInfo(context.Background(), "episode")
				return err
			},
		},
		{
			name: "no image",
			body: `{"d": [{"id": "tt1"}]}`,
			call: func(c *Client) error {
				_, err := c.TitleImage(context.Background(), "tt1")
				return err
			},
		},
		{
			name: "missing results key",
			body: `{}`,
			call: func(c *Client) error {
				_, err := c.TitleImage(context.Background(), "tt1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, fixedResponse(tt.body))
			if err := tt.call(client); !errors.Is(err, apperrors.ErrTitleNotFound) {
				t.Errorf("expected ErrTitleNotFound, got %v", err)
			}
		})
	}
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.LookUp(context.Background(), "inception")
	var httpErr *apperrors.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", httpErr.StatusCode)
	}
}

func TestClient_EmptyQuery(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})

	if _, err := client.LookUp(context.Background(), "  "); !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	if got := NewClient(WithTimeout(0)).httpClient.Timeout; got != httpTimeout {
		t.Errorf("zero timeout: expected default %v, got %v", httpTimeout, got)
	}
	if got := NewClient(WithTimeout(2 * time.Second)).httpClient.Timeout; got != 2*time.Second {
		t.Errorf("expected 2s, got %v", got)
	}
}
