package testsupport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// StubFile is one stored binary plus its metadata.
type StubFile struct {
	ID       string
	Title    string
	Filename string
	Type     string
	Checksum string
	Filesize int64
	Folder   string
	Data     []byte
}

// Instance is an in-memory stub backend.
type Instance struct {
	mu sync.Mutex

	// Token, when non-empty, must be presented as a bearer token.
	Token string

	// Collections maps collection name to stored rows. A collection absent
	// from the map does not exist (404), matching how an instance without
	// the mapping store behaves.
	Collections  map[string][]map[string]any
	Files        map[string]*StubFile
	Folders      []map[string]any
	FieldDefs    map[string][]map[string]any
	RelationDefs map[string][]map[string]any

	// CreateHook, when set, may veto a create with (status, message).
	CreateHook func(collection string, payload map[string]any) (int, string)
	// UpdateHook, when set, may veto an update with (status, message).
	UpdateHook func(collection, id string, payload map[string]any) (int, string)

	uploadCount int
	nextID      int
}

// NewInstance creates an empty stub.
func NewInstance() *Instance {
	return &Instance{
		Collections:  make(map[string][]map[string]any),
		Files:        make(map[string]*StubFile),
		FieldDefs:    make(map[string][]map[string]any),
		RelationDefs: make(map[string][]map[string]any),
	}
}

// Server starts an httptest server for the stub. Callers own its shutdown.
func (s *Instance) Server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(s.handle))
}

// UploadCount reports how many multipart uploads the stub accepted.
func (s *Instance) UploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadCount
}

// Rows returns a copy of a collection's rows.
func (s *Instance) Rows(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]any, len(s.Collections[collection]))
	copy(rows, s.Collections[collection])
	return rows
}

// AddFile seeds a stored binary, deriving checksum and size from data when
// they are unset.
func (s *Instance) AddFile(file StubFile) *StubFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if file.Checksum == "" && len(file.Data) > 0 {
		sum := sha256.Sum256(file.Data)
		file.Checksum = hex.EncodeToString(sum[:])
	}
	if file.Filesize == 0 {
		file.Filesize = int64(len(file.Data))
	}
	stored := file
	s.Files[file.ID] = &stored
	return &stored
}

func (s *Instance) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Instance) handle(w http.ResponseWriter, r *http.Request) {
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusUnauthorized, "Invalid user credentials.")
		return
	}
	path := strings.Trim(r.URL.Path, "/")
	segments := strings.Split(path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case path == "users/me":
		writeData(w, map[string]any{"id": "stub-user"})
	case path == "server/info":
		writeData(w, map[string]any{"project": map[string]any{"project_name": "Stub"}})
	case segments[0] == "items" && len(segments) == 2:
		s.handleItems(w, r, segments[1])
	case segments[0] == "items" && len(segments) == 3:
		s.handleItem(w, r, segments[1], segments[2])
	case path == "files" && r.Method == http.MethodPost:
		s.handleUpload(w, r)
	case segments[0] == "files" && len(segments) == 2:
		s.handleFile(w, r, segments[1])
	case segments[0] == "assets" && len(segments) == 2:
		s.handleAsset(w, segments[1])
	case path == "folders":
		s.handleFolders(w, r)
	case segments[0] == "fields" && len(segments) == 2:
		writeData(w, orEmpty(s.FieldDefs[segments[1]]))
	case segments[0] == "relations" && len(segments) == 2:
		writeData(w, orEmpty(s.RelationDefs[segments[1]]))
	default:
		writeError(w, http.StatusNotFound, "Route not found.")
	}
}

func (s *Instance) handleItems(w http.ResponseWriter, r *http.Request, collection string) {
	switch r.Method {
	case http.MethodGet:
		rows, ok := s.Collections[collection]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Collection %q doesn't exist.", collection))
			return
		}
		filtered := filterRows(rows, r.URL.Query())
		if limit := parseLimit(r.URL.Query().Get("limit")); limit > 0 && len(filtered) > limit {
			filtered = filtered[:limit]
		}
		writeData(w, filtered)
	case http.MethodPost:
		payload, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.CreateHook != nil {
			if status, message := s.CreateHook(collection, payload); status != 0 {
				writeError(w, status, message)
				return
			}
		}
		payload["id"] = s.newID("loc")
		s.Collections[collection] = append(s.Collections[collection], payload)
		writeData(w, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func (s *Instance) handleItem(w http.ResponseWriter, r *http.Request, collection, id string) {
	rows, ok := s.Collections[collection]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Collection %q doesn't exist.", collection))
		return
	}
	index := -1
	for i, row := range rows {
		if idString(row["id"]) == id {
			index = i
			break
		}
	}
	switch r.Method {
	case http.MethodGet:
		if index < 0 {
			writeError(w, http.StatusNotFound, "Item not found.")
			return
		}
		writeData(w, rows[index])
	case http.MethodPatch:
		if index < 0 {
			writeError(w, http.StatusNotFound, "Item not found.")
			return
		}
		payload, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.UpdateHook != nil {
			if status, message := s.UpdateHook(collection, id, payload); status != 0 {
				writeError(w, status, message)
				return
			}
		}
		for key, val := range payload {
			rows[index][key] = val
		}
		writeData(w, rows[index])
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func (s *Instance) handleFile(w http.ResponseWriter, r *http.Request, id string) {
	file, ok := s.Files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeData(w, fileJSON(file))
	case http.MethodPatch:
		payload, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if title, ok := payload["title"].(string); ok {
			file.Title = title
		}
		if folder, ok := payload["folder"].(string); ok {
			file.Folder = folder
		}
		writeData(w, fileJSON(file))
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func (s *Instance) handleAsset(w http.ResponseWriter, id string) {
	file, ok := s.Files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	contentType := file.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(file.Data)
}

func (s *Instance) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file := &StubFile{
		ID:       s.newID("file"),
		Title:    r.FormValue("title"),
		Folder:   r.FormValue("folder"),
		Filename: r.FormValue("filename_download"),
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file.Data = data
	file.Filesize = int64(len(data))
	sum := sha256.Sum256(data)
	file.Checksum = hex.EncodeToString(sum[:])
	file.Type = header.Header.Get("Content-Type")
	if file.Filename == "" {
		file.Filename = header.Filename
	}
	s.Files[file.ID] = file
	s.uploadCount++
	writeData(w, fileJSON(file))
}

func (s *Instance) handleFolders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		name := r.URL.Query().Get("filter[name][_eq]")
		matched := make([]map[string]any, 0, len(s.Folders))
		for _, folder := range s.Folders {
			if name == "" || folder["name"] == name {
				matched = append(matched, folder)
			}
		}
		writeData(w, matched)
	case http.MethodPost:
		payload, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		folder := map[string]any{"id": s.newID("folder"), "name": payload["name"]}
		s.Folders = append(s.Folders, folder)
		writeData(w, folder)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func orEmpty(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}

func fileJSON(file *StubFile) map[string]any {
	return map[string]any{
		"id":                file.ID,
		"title":             file.Title,
		"filename_download": file.Filename,
		"type":              file.Type,
		"checksum":          file.Checksum,
		"filesize":          file.Filesize,
		"folder":            file.Folder,
	}
}

func filterRows(rows []map[string]any, query map[string][]string) []map[string]any {
	matched := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if rowMatches(row, query) {
			matched = append(matched, row)
		}
	}
	return matched
}

func rowMatches(row map[string]any, query map[string][]string) bool {
	for key, values := range query {
		if !strings.HasPrefix(key, "filter[") || len(values) == 0 {
			continue
		}
		want := values[0]
		switch {
		case key == "filter[translations][title][_contains]":
			if !translationTitleContains(row, want) {
				return false
			}
		case strings.HasSuffix(key, "][_eq]"):
			field := strings.TrimSuffix(strings.TrimPrefix(key, "filter["), "][_eq]")
			if idString(row[field]) != want {
				return false
			}
		}
	}
	return true
}

func translationTitleContains(row map[string]any, term string) bool {
	translations, _ := row["translations"].([]any)
	for _, entry := range translations {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		title, _ := obj["title"].(string)
		if strings.Contains(strings.ToLower(title), strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

func idString(entry any) string {
	switch typed := entry.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return ""
	}
}

func decodeBody(r *http.Request) (map[string]any, error) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return payload, nil
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]any{{"message": message}},
	})
}
