package couchdb

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-kivik/kivik/v4"
)

const testDB = "testdb"

// fakeCouch implements the handful of CouchDB endpoints the repositories use.
type fakeCouch struct {
	mu    sync.Mutex
	docs  map[string]map[string]interface{}
	seq   int
	finds int
	gets  int
	puts  int

	// conflicts makes the next n updates of an existing document lose a race:
	// another writer stores title "theirs" under a new revision first.
	conflicts int

	indexDDoc string
	useIndex  interface{}
}

func newFakeCouch(t *testing.T) (*fakeCouch, *kivik.Client) {
	t.Helper()

	f := &fakeCouch{docs: make(map[string]map[string]interface{})}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := kivik.New("couch", srv.URL)
	if err != nil {
		t.Fatalf("kivik.New() error = %v", err)
	}
	return f, client
}

func (f *fakeCouch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			reply(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "reason": err.Error()})
			return
		}
		defer zr.Close()
		r.Body = io.NopCloser(zr)
	}

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if parts[0] != testDB {
		reply(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "Database does not exist."})
		return
	}

	if len(parts) == 1 || parts[1] == "" {
		switch r.Method {
		case http.MethodHead, http.MethodGet:
			reply(w, http.StatusOK, map[string]string{"db_name": testDB})
		case http.MethodPut:
			reply(w, http.StatusCreated, map[string]bool{"ok": true})
		default:
			reply(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
		}
		return
	}

	id := parts[1]
	switch {
	case id == "_index" && r.Method == http.MethodPost:
		f.index(w, r)
	case id == "_find" && r.Method == http.MethodPost:
		f.find(w, r)
	case r.Method == http.MethodGet:
		f.gets++
		doc, ok := f.docs[id]
		if !ok {
			reply(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "missing"})
			return
		}
		reply(w, http.StatusOK, doc)
	case r.Method == http.MethodPut:
		f.puts++
		f.put(w, r, id)
	case r.Method == http.MethodDelete:
		f.delete(w, r, id)
	default:
		reply(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	}
}

func (f *fakeCouch) put(w http.ResponseWriter, r *http.Request, id string) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "reason": err.Error()})
		return
	}

	rev, _ := doc["_rev"].(string)
	existing, exists := f.docs[id]
	if exists && f.conflicts > 0 {
		f.conflicts--
		f.seq++
		existing["title"] = "theirs"
		existing["_rev"] = fmt.Sprintf("%d-fake", f.seq)
	}
	if exists && existing["_rev"] != rev || !exists && rev != "" {
		reply(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
		return
	}

	f.seq++
	newRev := fmt.Sprintf("%d-fake", f.seq)
	doc["_id"] = id
	doc["_rev"] = newRev
	f.docs[id] = doc

	w.Header().Set("ETag", `"`+newRev+`"`)
	reply(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": newRev})
}

func (f *fakeCouch) delete(w http.ResponseWriter, r *http.Request, id string) {
	existing, ok := f.docs[id]
	if !ok {
		reply(w, http.StatusNotFound, map[string]string{"error": "not_found", "reason": "deleted"})
		return
	}
	if existing["_rev"] != r.URL.Query().Get("rev") {
		reply(w, http.StatusConflict, map[string]string{"error": "conflict", "reason": "Document update conflict."})
		return
	}

	delete(f.docs, id)
	f.seq++
	newRev := fmt.Sprintf("%d-fake", f.seq)
	w.Header().Set("ETag", `"`+newRev+`"`)
	reply(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "rev": newRev})
}

func (f *fakeCouch) index(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DDoc string `json:"ddoc"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "reason": err.Error()})
		return
	}
	f.indexDDoc = req.DDoc
	reply(w, http.StatusOK, map[string]string{"result": "created", "id": "_design/" + req.DDoc, "name": req.Name})
}

func (f *fakeCouch) find(w http.ResponseWriter, r *http.Request) {
	f.finds++

	var query struct {
		Selector map[string]interface{} `json:"selector"`
		UseIndex interface{}            `json:"use_index"`
		Limit    int                    `json:"limit"`
		Skip     int                    `json:"skip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "reason": err.Error()})
		return
	}
	f.useIndex = query.UseIndex

	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	matched := []map[string]interface{}{}
	for _, id := range ids {
		doc := f.docs[id]
		ok := true
		for k, v := range query.Selector {
			if doc[k] != v {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	if query.Skip < len(matched) {
		matched = matched[query.Skip:]
	} else {
		matched = matched[:0]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}

	reply(w, http.StatusOK, map[string]interface{}{"docs": matched})
}

func reply(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
