package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/shravanasati/mearas/extract"
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
	"github.com/shravanasati/mearas/server"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func main() {
	app := router.New()

	app.Get("/json", handler.Func(func(context.Context) response.Payload[map[string]any] {
		return response.JSON(map[string]any{
			"hello": 1,
			"hi":    "bye",
		})
	}))

	app.Get("/users/:id", handler.Handle1(extract.Path[int]("id"), func(_ context.Context, id int) response.Payload[user] {
		return response.JSON(user{ID: id, Name: "user"})
	}))

	app.Post("/echo", handler.Handle1(extract.Bytes(), func(_ context.Context, b []byte) response.Bytes {
		return response.Bytes(b)
	}))

	mux, err := app.Build()
	if err != nil {
		log.Fatalf("invalid routes: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	s, err := server.Serve(ctx, cfg, mux.Handler())
	if err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
	log.Println("Server started on", s.Addr())

	<-ctx.Done()
	s.Wait()
	log.Println("Server gracefully stopped")
}
