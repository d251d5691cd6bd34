package web

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"record-storefront/internal/chain"
	"record-storefront/internal/mint"
	"record-storefront/internal/observability"
	"record-storefront/internal/storefront"
)

type pageData struct {
	Title   string
	Account string
	Address string
	View    interface{}
}

// account returns the connected account from the cookie. Malformed values
// are treated as no account.
func (s *Server) account(r *http.Request) *common.Address {
	c, err := r.Cookie(AccountCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	addr, err := chain.ParseAddress(c.Value)
	if err != nil {
		s.log.WithField("cookie", c.Value).Debug("ignoring malformed account cookie")
		return nil
	}
	return &addr
}

func accountString(a *common.Address) string {
	if a == nil {
		return ""
	}
	return a.Hex()
}

// pathAddress parses the {address} path value, answering 404 when it is not an address.
func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, err := chain.ParseAddress(r.PathValue("address"))
	if err != nil {
		s.notFound(w, r)
		return common.Address{}, false
	}
	return addr, true
}

func (s *Server) pathTokenID(w http.ResponseWriter, r *http.Request) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(r.PathValue("tokenId"), 10)
	if !ok || id.Sign() < 0 {
		s.notFound(w, r)
		return nil, false
	}
	return id, true
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.log.WithError(err).WithField("template", page).Error("render page")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Debug("write json response")
	}
}

// aborted reports whether the view could not be built because the client went away.
// Nothing is written for such requests.
func (s *Server) aborted(r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if r.Context().Err() == nil {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("build view")
	}
	return true
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.render(w, http.StatusNotFound, tmplNotFound, pageData{Title: "Not found", Account: accountString(s.account(r))})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	view, err := s.sf.Store(r.Context())
	if s.aborted(r, err) {
		return
	}
	s.render(w, http.StatusOK, tmplCollection, pageData{Title: "Store", Account: accountString(s.account(r)), View: view})
}

func (s *Server) handleMyRecords(w http.ResponseWriter, r *http.Request) {
	account := s.account(r)
	view, err := s.sf.MyRecords(r.Context(), account)
	if s.aborted(r, err) {
		return
	}
	s.render(w, http.StatusOK, tmplCollection, pageData{Title: "My Records", Account: accountString(account), View: view})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	account := s.account(r)
	view, err := s.sf.BuyPage(r.Context(), addr, account, r.Host)
	if s.aborted(r, err) {
		return
	}
	s.render(w, http.StatusOK, tmplBuy, pageData{
		Title:   "Buy record",
		Account: accountString(account),
		Address: addr.Hex(),
		View:    view,
	})
}

// handleMint submits a mint for the connected account and returns to the buy
// page. Failures are logged only; the buy page reflects the restored state.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	back := "/buy-record/" + addr.Hex()

	account := s.account(r)
	if account == nil || s.mints == nil {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	log := s.log.WithField("record", addr.Hex()).WithField("account", account.Hex())
	sub, err := s.mints.Submit(r.Context(), addr, *account)
	switch {
	case errors.Is(err, mint.ErrAlreadyPending):
		log.Debug("mint already pending")
	case err != nil:
		log.WithError(err).Warn("mint submission failed")
	default:
		log.WithField("submission", sub.ID).Info("mint submitted for signature")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	id, ok := s.pathTokenID(w, r)
	if !ok {
		return
	}
	view, err := s.sf.OwnerPage(r.Context(), addr, id, r.Host)
	if s.aborted(r, err) {
		return
	}
	title := view.Title
	if title == "" {
		title = "Record"
	}
	s.render(w, http.StatusOK, tmplOwner, pageData{Title: title, Account: accountString(s.account(r)), View: view})
}

// handleCardImage redirects to the resolved card image, or the fallback image.
func (s *Server) handleCardImage(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	card := storefront.Card{Kind: storefront.CardCatalog}
	card.Record.RecordAddress = addr.Hex()
	if r.PathValue("tokenId") != "" {
		id, ok := s.pathTokenID(w, r)
		if !ok {
			return
		}
		card.Kind = storefront.CardOwned
		card.TokenID = id
	}

	target := s.sf.Cards().ResolveImage(r.Context(), card, r.Host)
	if r.Context().Err() != nil {
		return
	}
	if target == s.sf.Cards().Fallback() {
		// A failed read must not pin the fallback in caches.
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	view, err := s.sf.Store(r.Context())
	if s.aborted(r, err) {
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAPIMyRecords(w http.ResponseWriter, r *http.Request) {
	view, err := s.sf.MyRecords(r.Context(), s.account(r))
	if s.aborted(r, err) {
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAPIBuy(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	view, err := s.sf.BuyPage(r.Context(), addr, s.account(r), r.Host)
	if s.aborted(r, err) {
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAPIOwner(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	id, ok := s.pathTokenID(w, r)
	if !ok {
		return
	}
	view, err := s.sf.OwnerPage(r.Context(), addr, id, r.Host)
	if s.aborted(r, err) {
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// handleConnect stores the posted account (form field or JSON body) in the
// account cookie. Malformed addresses are ignored.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var value string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Account string `json:"account"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&body); err == nil {
			value = body.Account
		}
	} else {
		value = r.PostFormValue("account")
	}

	if addr, err := chain.ParseAddress(strings.TrimSpace(value)); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     AccountCookie,
			Value:    addr.Hex(),
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
		})
	} else {
		s.log.WithField("account", value).Debug("ignoring malformed account")
	}
	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:    AccountCookie,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

// redirectTarget returns the path and query of a same-host referer, or "/".
func redirectTarget(r *http.Request) string {
	ref := r.Referer()
	if ref == "" || r.Host == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Opaque != "" || u.User != nil || !strings.EqualFold(u.Host, r.Host) {
		return "/"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "/"
	}
	path := u.EscapedPath()
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") ||
		strings.Contains(u.Path, `\`) || strings.Contains(path, `\`) {
		return "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

// StatusResponse is the /status document.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	Started      time.Time `json:"started"`
	Requests     int64     `json:"requests"`
	PendingMints int       `json:"pending_mints"`
	LatestBlock  uint64    `json:"latest_block,omitempty"`
	ChainError   string    `json:"chain_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:  "running",
		Uptime:  s.now().Sub(s.started).Round(time.Second).String(),
		Started: s.started,
	}
	if s.mints != nil {
		resp.PendingMints = s.mints.PendingCount()
	}
	if s.chain != nil {
		block, err := s.chain.BlockNumber(r.Context())
		if err != nil {
			resp.ChainError = err.Error()
		} else {
			resp.LatestBlock = block
			observability.UpdateHighestBlock(block)
		}
	}

	s.mu.Lock()
	resp.Requests = s.requests
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, resp)
}
