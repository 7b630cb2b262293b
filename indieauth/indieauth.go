// Package indieauth implements the authorization side of the site: the
// consent request lifecycle, client registration and code-for-token
// exchange. See https://indieweb.org/authorization-endpoint.
package indieauth

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amberfield/press/internal/clientinfo"
	"github.com/amberfield/press/internal/httpx"
	"github.com/amberfield/press/internal/to"
	"github.com/amberfield/press/models"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type Env struct {
	*models.Env

	// Identities are the URLs this server will vouch for as "me".
	Identities []string

	// PasswordHash is the bcrypt hash the consent form password is
	// checked against.
	PasswordHash []byte
}

// vouchesFor reports whether me names an identity this deployment serves.
// A trailing slash on either side is not significant.
func (e *Env) vouchesFor(me string) bool {
	for _, identity := range e.Identities {
		if strings.TrimSuffix(me, "/") == strings.TrimSuffix(identity, "/") {
			return true
		}
	}
	return false
}

// Authorize is the authorization endpoint. GET renders the consent prompt
// for the site owner, POST exchanges a confirmed code for the owner's
// identity.
func Authorize(env *Env, w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case "GET":
		return authorizeNew(env, w, r)
	case "POST":
		return exchangeIdentity(env, w, r)
	default:
		return httpx.Error(http.StatusMethodNotAllowed, fmt.Errorf("unsupported method %s", r.Method))
	}
}

func authorizeNew(env *Env, w http.ResponseWriter, r *http.Request) error {
	me := r.FormValue("me")
	clientID := r.FormValue("client_id")
	redirectURI := r.FormValue("redirect_uri")
	state := r.FormValue("state")
	responseType := r.FormValue("response_type")
	if responseType == "" {
		responseType = "id"
	}
	scope := r.FormValue("scope")

	if me != "" {
		// first authorization touch, register the client before anything
		// else. Registration fails closed on a cross host redirect_uri and
		// is a no-op on missing params; either way the checks below decide
		// the response.
		name := clientinfo.Name(r.Context(), clientID)
		registered, err := models.NewClients(env.DB).Register(clientID, redirectURI, name)
		if err != nil {
			return err
		}
		env.Log().Debug("client registration", slog.String("client_id", clientID), slog.Bool("registered", registered))
	}

	if !env.vouchesFor(me) {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("cannot authorize %s", me))
	}
	if clientID == "" || redirectURI == "" || state == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("missing fields from query"))
	}

	req := &models.ConsentRequest{
		ClientID:     clientID,
		Me:           me,
		State:        state,
		ResponseType: responseType,
		RedirectURI:  redirectURI,
		Scope:        scope,
		ExpiresAt:    time.Now().Add(models.ConsentLifetime),
	}
	if err := models.NewConsentRequests(env.DB).Create(req); err != nil {
		return err
	}
	env.Log().Info("rendering consent form",
		slog.String("client_id", clientID),
		slog.String("me", me),
		slog.String("scope", scope),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return consentForm.Execute(w, req)
}

var consentForm = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Authorize {{.ClientID}}</title>
</head>
<body>
<p><b>{{.ClientID}}</b> wants to sign in as <b>{{.Me}}</b>{{if .Scope}} with scope <code>{{.Scope}}</code>{{end}}.</p>
<form method="POST" action="/auth/indieauth/confirm">
<input type="hidden" name="request_id" value="{{.ID}}">
<p><label>Password</label><input type="password" name="password"></p>
<p><input type="submit" value="Allow"></p>
</form>
</body>
</html>
`))

// Confirm handles the site owner allowing a pending consent request. On
// success the owner's browser is redirected back to the client with code and
// state appended to the redirect_uri.
func Confirm(env *Env, w http.ResponseWriter, r *http.Request) error {
	password := r.PostFormValue("password")
	if err := bcrypt.CompareHashAndPassword(env.PasswordHash, []byte(password)); err != nil {
		return httpx.Error(http.StatusUnauthorized, errors.New("invalid password"))
	}

	id, err := strconv.ParseUint(r.PostFormValue("request_id"), 10, 64)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("invalid request_id: %w", err))
	}

	req, err := models.NewConsentRequests(env.DB).Confirm(uint(id), time.Now())
	if err != nil {
		if errors.Is(err, models.ErrRequestExpired) {
			return httpx.Error(http.StatusUnauthorized, err)
		}
		return err
	}

	redirect, err := addParams(req.RedirectURI, url.Values{
		"code":  {*req.AuthCode},
		"state": {req.State},
	})
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	env.Log().Info("consent confirmed",
		slog.String("client_id", req.ClientID),
		slog.String("redirect_uri", req.RedirectURI),
	)
	return httpx.Redirect(w, redirect)
}

// addParams merges params into uri's query, preserving any query parameters
// already present.
func addParams(uri string, params url.Values) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		q.Set(k, vs[0])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func exchangeIdentity(env *Env, w http.ResponseWriter, r *http.Request) error {
	clientID := r.PostFormValue("client_id")
	redirectURI := r.PostFormValue("redirect_uri")
	code := r.PostFormValue("code")

	req, err := models.NewConsentRequests(env.DB).Exchange(clientID, redirectURI, code, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrRequestExpired) {
			return httpx.Error(http.StatusUnauthorized, err)
		}
		return err
	}
	return respond(w, r, map[string]string{
		"me":    req.Me,
		"state": req.State,
	})
}

// Token is the token endpoint. It converts a confirmed authorization code
// into the verified identity and, unless the consent request asked for
// identity verification only, a durable access grant.
func Token(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		GrantType   string `json:"grant_type" schema:"grant_type"`
		Code        string `json:"code" schema:"code"`
		ClientID    string `json:"client_id" schema:"client_id"`
		RedirectURI string `json:"redirect_uri" schema:"redirect_uri"`
		Me          string `json:"me" schema:"me"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.GrantType != models.GrantAuthorizationCode {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("unsupported grant_type %q", params.GrantType))
	}

	req, err := models.NewConsentRequests(env.DB).Exchange(params.ClientID, params.RedirectURI, params.Code, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrRequestExpired) {
			return httpx.Error(http.StatusUnauthorized, err)
		}
		return err
	}

	resp := map[string]string{
		"me": req.Me,
	}
	if req.ResponseType != "id" {
		token, err := models.NewTokens(env.DB).Mint(req.Me, req.Scope, time.Now())
		if err != nil {
			return err
		}
		resp["access_token"] = token.AccessToken
		resp["token_type"] = string(token.TokenType)
		resp["scope"] = token.Scope
		env.Log().Info("minted access token",
			slog.String("client_id", req.ClientID),
			slog.String("scope", token.Scope),
		)
	}
	return respond(w, r, resp)
}

// respond writes values as JSON if the caller accepts JSON, form encoded
// otherwise.
func respond(w http.ResponseWriter, r *http.Request, values map[string]string) error {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return to.JSON(w, values)
	}
	return to.Form(w, values)
}
