package adapthttp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"librarycat/internal/app"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := s.catalog.ListBooks(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", pageData{Title: "Dashboard", Books: books})
}

func (s *Server) handleViewBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := s.catalog.ListBooks(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "view_books", pageData{Title: "All books", Books: books})
}

// handleSearch reads the query from the URL on GET and from the form on POST.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query().Get("query")
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		query = r.PostFormValue("query")
	}

	books, err := s.catalog.SearchBooks(r.Context(), query)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "search", pageData{Title: "Search", Books: books, Query: query})
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := s.catalog.AddBook(r.Context(), r.PostFormValue("title"), r.PostFormValue("author"))
	if errors.Is(err, app.ErrInvalidBook) {
		s.redirectWithFlash(w, r, "/dashboard", flashDanger, "Title and author are required.")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.redirectWithFlash(w, r, "/dashboard", flashSuccess, "Book added successfully!")
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, _ := parseBookID(ps)
	if err := s.catalog.DeleteBook(r.Context(), id); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.redirectWithFlash(w, r, "/dashboard", flashSuccess, "Book deleted successfully!")
}

// withBookID answers 404 for ids that are not non-negative integers, before
// any session lookup.
func withBookID(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := parseBookID(ps); !ok {
			http.NotFound(w, r)
			return
		}
		next(w, r, ps)
	}
}

func parseBookID(ps httprouter.Params) (int64, bool) {
	n, err := strconv.ParseUint(ps.ByName("id"), 10, 63)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}
