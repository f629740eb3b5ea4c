// Package stubapi serves in-memory versions of the users and products APIs
// for local development and tests. Records live only as long as the process.
package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"admin-dashboard/internal/models"
)

type store[T any] struct {
	mu    sync.Mutex
	ids   []string
	items map[string]T
}

func newStore[T any]() *store[T] {
	return &store[T]{items: make(map[string]T)}
}

func (s *store[T]) list() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.items[id])
	}
	return out
}

func (s *store[T]) insert(id string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.items[id] = v
}

func (s *store[T]) replace(id string, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	s.items[id] = v
	return true
}

func (s *store[T]) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

type userInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUsersHandler serves /users with sequential numeric ids.
func NewUsersHandler() http.Handler {
	users := newStore[models.User]()
	var (
		mu   sync.Mutex
		next = 1
	)
	nextID := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := strconv.Itoa(next)
		next++
		return id
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, users.list())
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeUser(w, r)
		if !ok {
			return
		}
		u := models.User{ID: models.ID(nextID()), Name: in.Name, Email: in.Email}
		users.insert(string(u.ID), u)
		slog.Info("User created", "id", u.ID)
		writeJSON(w, http.StatusCreated, u)
	})
	mux.HandleFunc("PUT /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeUser(w, r)
		if !ok {
			return
		}
		id := r.PathValue("id")
		u := models.User{ID: models.ID(id), Name: in.Name, Email: in.Email}
		if !users.replace(id, u) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
	mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !users.remove(r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func decodeUser(w http.ResponseWriter, r *http.Request) (userInput, bool) {
	var in userInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return in, false
	}
	return in, true
}

type productInput struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

// NewProductsHandler serves /products with uuid "_id" identifiers.
func NewProductsHandler() http.Handler {
	products := newStore[models.Product]()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, products.list())
	})
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeProduct(w, r)
		if !ok {
			return
		}
		p := models.Product{ID: models.ID(uuid.NewString()), Name: in.Name, Price: *in.Price}
		products.insert(string(p.ID), p)
		slog.Info("Product created", "id", p.ID)
		writeJSON(w, http.StatusCreated, p)
	})
	mux.HandleFunc("PUT /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeProduct(w, r)
		if !ok {
			return
		}
		id := r.PathValue("id")
		p := models.Product{ID: models.ID(id), Name: in.Name, Price: *in.Price}
		if !products.replace(id, p) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("DELETE /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !products.remove(r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (productInput, bool) {
	var in productInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" || in.Price == nil || *in.Price < 0 {
		writeError(w, http.StatusBadRequest, "name and a non-negative price are required")
		return in, false
	}
	return in, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
