package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// boardList returns every bulletin board entry in sequence order
// GET /board
func (a *API) boardList(w http.ResponseWriter, _ *http.Request) {
	entries, err := a.authority.Board().List()
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, entries)
}

// boardEntry returns a single bulletin board entry
// GET /board/{seq}
func (a *API) boardEntry(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseUint(chi.URLParam(r, SeqURLParam), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("%s: %v", SeqURLParam, err).Write(w)
		return
	}
	entry, err := a.authority.Board().Entry(seq)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, entry)
}
