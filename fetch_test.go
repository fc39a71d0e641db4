package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Council Minutes</title>
  <style>body { color: red; }</style>
  <script>var tracking = true;</script>
</head>
<body>
  <nav>Home | About</nav>
  <header>Site banner</header>
  <main>
    <h1>Minutes</h1>
    <p>The council   met on
       Tuesday.</p>
  </main>
  <footer>Copyright</footer>
</body>
</html>`

func TestFetchURLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(samplePage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("extracts readable text", func(t *testing.T) {
		content, err := FetchURLContent(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("FetchURLContent failed: %v", err)
		}
		if content != "Council Minutes\n\nMinutes The council met on Tuesday." {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("non-200 status", func(t *testing.T) {
		if _, err := FetchURLContent(context.Background(), server.URL+"/missing"); err == nil {
			t.Error("expected error for 404")
		}
	})

	t.Run("rejects non-http URLs", func(t *testing.T) {
		for _, u := range []string{"file:///etc/passwd", "example.com/page", "ftp://example.com", "://bad"} {
			if _, err := FetchURLContent(context.Background(), u); err == nil {
				t.Errorf("%q should be rejected", u)
			}
		}
	})
}

func TestExtractReadableText(t *testing.T) {
	t.Run("falls back to body", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>Just a body</p><script>x()</script></body></html>`))
		if err != nil {
			t.Fatal(err)
		}
		if got := ExtractReadableText(doc); got != "Just a body" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("truncates long pages", func(t *testing.T) {
		long := strings.Repeat("a", MaxReferenceChars+100)
		doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<article>" + long + "</article>"))
		got := ExtractReadableText(doc)
		if len(got) != MaxReferenceChars+3 || !strings.HasSuffix(got, "...") {
			t.Errorf("len = %d", len(got))
		}
	})
}

func TestBuildQuestionWithReferences(t *testing.T) {
	fetch := func(_ context.Context, u string) (string, error) {
		if u == "https://down.example" {
			return "", errors.New("timeout")
		}
		return "text of " + u, nil
	}

	q, errs := BuildQuestionWithReferences(context.Background(), "Question?", nil, fetch)
	if q != "Question?" || errs != nil {
		t.Errorf("no URLs should leave the question alone: %q %v", q, errs)
	}

	q, errs = BuildQuestionWithReferences(context.Background(), "Question?", []string{"https://ok.example", "https://down.example"}, fetch)
	want := "Question?\n\nReference material:\n\n[1] https://ok.example\ntext of https://ok.example\n\n[2] https://down.example (unavailable)\n"
	if q != want {
		t.Errorf("got %q, want %q", q, want)
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "https://down.example") {
		t.Errorf("errs = %v", errs)
	}
}
