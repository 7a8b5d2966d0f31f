// orchestrator-mock is a standalone fake job orchestrator for local
// development and end-to-end tests. It accepts query-plan job submissions,
// walks each job through pending -> running -> succeeded over successive
// polls, and synthesizes one fragment item per requested path.
//
// Endpoints mirror the generic HTTP orchestrator contract:
//
//	POST /jobs      submit a job definition, returns {"job_id": ...}
//	GET  /jobs/{id} poll status, terminal responses carry the result
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
)

type planPart struct {
	AdapterIdentifier string          `json:"adapter_identifier"`
	PersonIdentifier  json.RawMessage `json:"person_identifier"`
	LIFFragmentPaths  []string        `json:"lif_fragment_paths"`
}

type jobDefinition struct {
	LIFQueryPlan []planPart `json:"lif_query_plan"`
}

type fragmentPayload struct {
	LIFFragmentPath string           `json:"lif_fragment_path"`
	Items           []map[string]any `json:"items"`
}

type jobResult struct {
	Fragments []fragmentPayload `json:"fragments"`
}

// job tracks the poll count so status advances deterministically:
// first poll pending, second running, succeeded from the third on.
type job struct {
	definition jobDefinition
	polls      int
}

type server struct {
	mu     sync.Mutex
	nextID int
	jobs   map[string]*job

	// pollsToFinish lets tests exercise the polling loop; 0 succeeds
	// immediately.
	pollsToFinish int
}

func newServer(pollsToFinish int) *server {
	return &server{jobs: make(map[string]*job), pollsToFinish: pollsToFinish}
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var def jobDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, `{"error":"malformed job definition"}`, http.StatusBadRequest)
		return
	}
	if len(def.LIFQueryPlan) == 0 {
		http.Error(w, `{"error":"empty query plan"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("job-%d", s.nextID)
	s.jobs[id] = &job{definition: def}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"job_id": id})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		j.polls++
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"unknown job"}`, http.StatusNotFound)
		return
	}

	body := map[string]any{"job_id": id}
	switch {
	case j.polls <= s.pollsToFinish/2:
		body["status"] = "pending"
	case j.polls <= s.pollsToFinish:
		body["status"] = "running"
	default:
		body["status"] = "succeeded"
		body["result"] = synthesize(j.definition)
	}
	writeJSON(w, http.StatusOK, body)
}

// synthesize fabricates one item per requested path. Leaf values are keyed
// by the final path segment so merged records look plausible.
func synthesize(def jobDefinition) jobResult {
	var result jobResult
	for _, part := range def.LIFQueryPlan {
		for _, path := range part.LIFFragmentPaths {
			segments := strings.Split(path, ".")
			leaf := segments[len(segments)-1]
			result.Fragments = append(result.Fragments, fragmentPayload{
				LIFFragmentPath: path,
				Items:           []map[string]any{{leaf: sampleValue(leaf)}},
			})
		}
	}
	return result
}

var samples = map[string]any{
	"firstName":   "Ada",
	"lastName":    "Lovelace",
	"dateOfBirth": "1815-12-10",
	"courseId":    "CS101",
	"imageId":     "img-1",
}

func sampleValue(leaf string) any {
	if v, ok := samples[leaf]; ok {
		return v
	}
	return "sample-" + leaf
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	polls := flag.Int("polls", 2, "polls before a job reaches a terminal status")
	flag.Parse()

	s := newServer(*polls)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleSubmit)
	mux.HandleFunc("GET /jobs/{id}", s.handleStatus)

	log.Printf("orchestrator-mock listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}
