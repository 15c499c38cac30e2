package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	requestCount atomic.Int64
	triggerCount atomic.Int64
)

var eventTypes = []string{"PushEvent", "IssuesEvent", "PullRequestEvent", "WatchEvent", "IssueCommentEvent"}

type mockEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	Actor     map[string]any `json:"actor"`
	Payload   map[string]any `json:"payload"`
}

// feeds holds a growing event feed per repository, oldest first.
type feeds struct {
	mu     sync.Mutex
	nextID int64
	repos  map[string][]mockEvent
}

func (f *feeds) add(repo string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	eventType := eventTypes[f.nextID%int64(len(eventTypes))]
	f.repos[repo] = append(f.repos[repo], mockEvent{
		ID:        strconv.FormatInt(f.nextID, 10),
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Actor: map[string]any{
			"id":            1,
			"login":         "octo",
			"display_login": "octo",
			"url":           "https://api.github.com/users/octo",
			"avatar_url":    "https://avatars.githubusercontent.com/u/1",
		},
		Payload: map[string]any{"seq": f.nextID},
	})
}

// page returns events newest first.
func (f *feeds) page(repo string, page, perPage int) ([]mockEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.repos[repo]

	start := (page - 1) * perPage
	out := make([]mockEvent, 0, perPage)
	for i := start; i < start+perPage && i < len(events); i++ {
		out = append(out, events[len(events)-1-i])
	}
	return out, start+perPage < len(events)
}

func (f *feeds) known(repo string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.repos[repo]
	return ok
}

func (f *feeds) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.repos))
	for name := range f.repos {
		names = append(names, name)
	}
	return names
}

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	interval := 5 * time.Second
	if v := os.Getenv("EVENT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	f := &feeds{repos: map[string][]mockEvent{"api": nil, "web": nil}}
	for _, name := range f.names() {
		for range 5 {
			f.add(name)
		}
	}

	// New activity on every repository
	go func() {
		for range time.Tick(interval) {
			for _, name := range f.names() {
				f.add(name)
			}
		}
	}()

	http.HandleFunc("GET /users/{login}", func(w http.ResponseWriter, r *http.Request) {
		logRequest(r, requestCount.Add(1), http.StatusOK)
		login := r.PathValue("login")
		respond(w, http.StatusOK, map[string]any{
			"id":       1,
			"login":    login,
			"name":     "The Octocat",
			"email":    nil,
			"location": "San Francisco",
			"bio":      nil,
			"html_url": "https://github.com/" + login,
		})
	})

	http.HandleFunc("GET /repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
		repo := r.PathValue("repo")
		if !f.known(repo) {
			logRequest(r, requestCount.Add(1), http.StatusNotFound)
			respond(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		logRequest(r, requestCount.Add(1), http.StatusOK)
		respond(w, http.StatusOK, map[string]any{
			"id":        1,
			"name":      repo,
			"full_name": r.PathValue("owner") + "/" + repo,
		})
	})

	http.HandleFunc("GET /repos/{owner}/{repo}/events", func(w http.ResponseWriter, r *http.Request) {
		repo := r.PathValue("repo")
		perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
		if err != nil || perPage <= 0 {
			perPage = 30
		}
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page <= 0 {
			page = 1
		}

		events, more := f.page(repo, page, perPage)
		if more {
			next := fmt.Sprintf("http://%s%s?per_page=%d&page=%d", r.Host, r.URL.Path, perPage, page+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		}
		logRequest(r, requestCount.Add(1), http.StatusOK)
		respond(w, http.StatusOK, events)
	})

	// Webhook trigger receiver
	http.HandleFunc("POST /trigger", func(w http.ResponseWriter, r *http.Request) {
		count := triggerCount.Add(1)
		fmt.Printf("[trigger #%d] ref=%s event=%s dispatch=%s sig=%s\n",
			count,
			r.Header.Get("X-Trigger-Ref"),
			r.Header.Get("X-Event-Type"),
			truncate(r.Header.Get("X-Dispatch-ID"), 8),
			truncate(r.Header.Get("X-Trigger-Signature"), 16),
		)
		respond(w, http.StatusOK, map[string]string{"status": "received"})
	})

	// Stats endpoint: request counts
	http.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]int64{
			"total_requests": requestCount.Load(),
			"triggers":       triggerCount.Load(),
		})
	})

	log.Printf("Mock activity API starting on :%s", port)
	log.Printf("  GET  /users/{login}                -> user")
	log.Printf("  GET  /repos/{owner}/{repo}         -> repository (api, web)")
	log.Printf("  GET  /repos/{owner}/{repo}/events  -> events, newest first, one new event every %s", interval)
	log.Printf("  POST /trigger                      -> webhook trigger receiver")
	log.Printf("  GET  /stats                        -> request count")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func logRequest(r *http.Request, count int64, status int) {
	fmt.Printf("[#%d] %s %s -> %d | auth=%t\n",
		count,
		r.Method,
		r.URL.RequestURI(),
		status,
		r.Header.Get("Authorization") != "",
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
