package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/amberfield/press/indieauth"
	"github.com/amberfield/press/internal/httpx"
	"github.com/amberfield/press/media"
	"github.com/amberfield/press/micropub"
	"github.com/amberfield/press/models"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ServeCmd struct {
	Addr         string   `help:"address to listen" default:"localhost:8080"`
	Domain       string   `required:"" help:"domain name entries are published under"`
	Me           []string `required:"" name:"me" help:"identity URLs this server vouches for"`
	PasswordHash string   `required:"" help:"bcrypt hash of the site password, see hash-password"`
	MediaDir     string   `help:"directory uploaded files are stored in" default:"media"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	if err := configureDB(db); err != nil {
		return err
	}

	store, err := media.NewStore(s.MediaDir)
	if err != nil {
		return err
	}

	env := &models.Env{
		DB:     db,
		Logger: slog.New(slog.NewTextHandler(os.Stderr)),
	}
	authEnv := &indieauth.Env{
		Env:          env,
		Identities:   s.Me,
		PasswordHash: []byte(s.PasswordHash),
	}
	pubEnv := &micropub.Env{
		Env:    env,
		Domain: s.Domain,
		Media:  store,
	}
	auth := func(fn func(*indieauth.Env, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
		return httpx.HandlerFunc(func(*http.Request) *indieauth.Env { return authEnv }, fn)
	}
	pub := func(fn func(*micropub.Env, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
		return httpx.HandlerFunc(func(*http.Request) *micropub.Env { return pubEnv }, fn)
	}

	c := chi.NewRouter()
	c.Use(middleware.RequestID)
	c.Use(middleware.RealIP)
	c.Use(middleware.Logger)
	c.Use(middleware.Recoverer)

	c.Route("/", func(r chi.Router) {

		r.Route("/auth/indieauth", func(r chi.Router) {
			r.Get("/", auth(indieauth.Authorize))
			r.Post("/", auth(indieauth.Authorize))
			r.Post("/confirm", auth(indieauth.Confirm))
			r.Post("/token", auth(indieauth.Token))
		})

		r.Route("/api/micropub", func(r chi.Router) {
			r.Get("/", pub(micropub.Micropub))
			r.Post("/", pub(micropub.Micropub))
			r.Post("/media", pub(micropub.Upload))
		})

		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(store.Dir()))))

		r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			// no robots, especially not you Bingbot!
			io.WriteString(w, "User-agent: *\nDisallow: /")
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "https://"+s.Domain+"/", http.StatusFound)
		})

	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		fmt.Printf("%s %s\n", method, route)
		return nil
	}

	if err := chi.Walk(c, walkFunc); err != nil {
		fmt.Printf("Logging err: %s\n", err.Error())
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      c,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return svr.ListenAndServe()
}
