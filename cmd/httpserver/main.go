package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shravanasati/mearas/extract"
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/middleware"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
	"github.com/shravanasati/mearas/server"
	"rivaas.dev/binding"
)

type User struct {
	ID    int    `json:"id" yaml:"id" toml:"id" msgpack:"id"`
	Name  string `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Email string `json:"email" yaml:"email" toml:"email" msgpack:"email"`
}

type createUser struct {
	Name  string `json:"name" form:"name" validate:"required,min=2"`
	Email string `json:"email" form:"email" validate:"required,email"`
}

type listParams struct {
	Limit  int `query:"limit" default:"20" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

type avatarUpload struct {
	UserID int           `form:"user_id"`
	Avatar *binding.File `form:"avatar"`
}

// userStore is an in-memory user table.
type userStore struct {
	mu       sync.RWMutex
	users    map[int]User
	nextID   int
	modified time.Time
}

func newUserStore() *userStore {
	return &userStore{users: map[int]User{}, nextID: 1, modified: time.Now()}
}

func (s *userStore) lastModified(*request.Request) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified, true
}

type userResult = response.Result[response.Payload[User], response.Problem]

func (s *userStore) get(_ context.Context, id int) userResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return response.Err[response.Payload[User]](response.NewProblem(response.StatusNotFound, "no user with id "+strconv.Itoa(id)))
	}
	return response.Ok[response.Payload[User], response.Problem](response.JSON(u))
}

func (s *userStore) create(_ context.Context, in createUser) response.Payload[User] {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := User{ID: s.nextID, Name: in.Name, Email: in.Email}
	s.users[u.ID] = u
	s.nextID++
	s.modified = time.Now()
	return response.JSON(u).WithStatus(response.StatusCreated)
}

func (s *userStore) list(_ context.Context, p listParams, accept *string) response.Responder {
	s.mu.RLock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	slices.SortFunc(users, func(a, b User) int { return a.ID - b.ID })
	users = users[min(p.Offset, len(users)):]
	users = users[:min(p.Limit, len(users))]

	if accept != nil {
		switch *accept {
		case "application/yaml":
			return response.YAML(users)
		case "application/toml":
			return response.TOML(map[string][]User{"users": users})
		case "application/msgpack":
			return response.MsgPack(users)
		}
	}
	return response.JSON(users)
}

func (s *userStore) delete(_ context.Context, id int) response.Responder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return response.NewProblem(response.StatusNotFound, "no user with id "+strconv.Itoa(id))
	}
	delete(s.users, id)
	s.modified = time.Now()
	return response.NoContent{}
}

func serverHeader(next handler.Handler) handler.Handler {
	return func(r *request.Request) response.Response {
		return response.From(next(r)).WithHeader("X-Server", "mearas")
	}
}

func stream(_ context.Context, n int) response.Responder {
	if n < 1 || n > 60 {
		return response.NewProblem(response.StatusBadRequest, "n must be between 1 and 60")
	}

	return response.NewStreamResponse(func(w io.Writer, setTrailer response.TrailerSetter) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		var all bytes.Buffer
		for i := range n {
			t := <-ticker.C
			line := fmt.Sprintf("%d %s\n", i, t.Format(time.RFC3339Nano))
			all.WriteString(line)
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}

		hash := sha256.Sum256(all.Bytes())
		setTrailer("X-Content-SHA256", hex.EncodeToString(hash[:]))
		setTrailer("X-Content-Length", strconv.Itoa(all.Len()))
		return nil
	}, []string{"X-Content-Length", "X-Content-SHA256"})
}

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("unable to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	cfg.Logger = logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewMetrics(reg, "mearas")
	if err != nil {
		logger.Error("unable to register metrics", "error", err)
		os.Exit(1)
	}

	corf, err := middleware.NewCORF()
	if err != nil {
		logger.Error("unable to set up CORF", "error", err)
		os.Exit(1)
	}

	app := router.New(router.WithLogger(logger))
	app.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		metrics.Middleware(),
		middleware.SecureHeaders(),
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE"},
		}),
		corf.Handler,
		middleware.BodyLimit(1<<20),
		middleware.Timeout(30*time.Second),
		serverHeader,
	)

	store := newUserStore()
	var mux *router.Mux

	app.Get("/metrics", metrics.Handler())
	app.Get("/health", handler.Func(func(context.Context) response.Text { return "ok" }))
	app.Get("/index", handler.Func(func(context.Context) response.HTML { return "<h1>hullo</h1>" }))
	app.Get("/redirect", handler.Func(func(context.Context) response.Redirect { return "/index" }))

	app.Group("/users", func(g *router.Group) {
		g.Get("/", handler.Handle2(
			extract.Valid(extract.Query[listParams]()),
			extract.OptionalHeader("Accept"),
			store.list,
		))
		g.Post("/", handler.Handle1(extract.Valid(extract.Decoded[createUser]()), store.create))
		g.Get("/:id", handler.Handle1(extract.Path[int]("id"), store.get))
		g.Delete("/:id", handler.Handle1(extract.Path[int]("id"), store.delete))
	}, middleware.IfModifiedSince(store.lastModified))

	app.Post("/avatars", handler.Handle1(extract.Multipart[avatarUpload](), func(_ context.Context, u avatarUpload) response.Responder {
		data, err := u.Avatar.Bytes()
		if err != nil {
			return response.NewProblem(response.StatusBadRequest, err.Error())
		}
		hash := sha256.Sum256(data)
		return response.JSON(map[string]any{
			"user":   u.UserID,
			"name":   u.Avatar.Name,
			"size":   u.Avatar.Size,
			"sha256": hex.EncodeToString(hash[:]),
		}).WithStatus(response.StatusCreated)
	}))

	app.Get("/stream/:n", handler.Handle1(extract.Path[int]("n"), stream))

	app.Get("/files/*path", handler.Handle1(extract.TailPath("path"), func(_ context.Context, p string) response.Text {
		return response.Text("would serve " + p)
	}))

	app.Group("/admin", func(g *router.Group) {
		g.Get("/routes", handler.Of(func(*request.Request) response.Payload[[]router.RouteInfo] {
			return response.JSON(mux.Routes())
		}))
		g.Get("/panic", func(*request.Request) response.Response {
			panic("boom")
		})
	},
		middleware.RateLimit(middleware.RateLimitConfig{Rate: 5, Burst: 10}),
		middleware.BasicAuth("admin", []middleware.Account{{
			Username: os.Getenv("MEARAS_ADMIN_USER"),
			Password: os.Getenv("MEARAS_ADMIN_PASSWORD"),
		}}),
	)

	mux, err = app.Build()
	if err != nil {
		logger.Error("invalid routes", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := server.Serve(ctx, cfg, mux.Handler())
	if err != nil {
		logger.Error("unable to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	s.Wait()
	logger.Info("server stopped")
}
