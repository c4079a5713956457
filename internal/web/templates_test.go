package web

import (
	"strings"
	"testing"
	"time"
)

func TestRendererKnowsAllPages(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	for _, page := range []string{"dashboard", "login", "register"} {
		var buf strings.Builder
		if err := r.Render(&buf, page, PageData{Title: "t"}); err != nil {
			t.Errorf("render %s: %v", page, err)
		}
		if buf.Len() == 0 {
			t.Errorf("render %s produced no output", page)
		}
	}
	if err := r.Render(&strings.Builder{}, "missing", PageData{}); err == nil {
		t.Fatalf("unknown page should error")
	}
}

func TestRenderInjectsFooterYear(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	var buf strings.Builder
	if err := r.Render(&buf, "login", PageData{Title: "Login"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	year := time.Now().UTC().Format("2006")
	if !strings.Contains(buf.String(), year) {
		t.Fatalf("footer year %s missing from output", year)
	}
}

func TestRenderShowsFlashes(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	var buf strings.Builder
	data := PageData{
		Title:   "Login",
		Flashes: []Flash{{Category: "danger", Message: "Invalid username or password. Please try again."}},
	}
	if err := r.Render(&buf, "login", data); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Invalid username or password. Please try again.") {
		t.Fatalf("flash message missing from output")
	}
	if !strings.Contains(out, "danger") {
		t.Fatalf("flash category missing from output")
	}
}
