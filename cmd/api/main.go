package main

import (
	"context"
	"log"
	"net/http"

	"github.com/mkrishnan/libraryops/internal/api"
	"github.com/mkrishnan/libraryops/internal/auth"
	"github.com/mkrishnan/libraryops/internal/config"
	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/service"
	"github.com/mkrishnan/libraryops/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var st store.Store
	if cfg.DBSource != "" {
		pg, err := store.NewPostgres(ctx, cfg.DBSource)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		st = pg
	} else {
		log.Println("DB_SOURCE not set, using in-memory store")
		st = store.NewMemory()
	}
	defer st.Close()

	// Initialize Layers
	authSvc := auth.New(st)
	catalog := service.NewCatalog(st)
	memberships := service.NewMemberships(st)
	loans := service.NewLoans(st)

	// The in-memory store starts empty; bootstrap the admin account so the
	// API is reachable. Postgres deployments seed via cmd/seeder.
	if cfg.DBSource == "" {
		if _, err := authSvc.Register(ctx, "admin", cfg.AdminPassword, domain.RoleAdmin); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	handler := api.NewHandler(catalog, memberships, loans, authSvc)
	router := api.NewRouter(handler)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
