package main

import (
	"log"

	httpapi "tictactoe-arena/internal/api/http"
	"tictactoe-arena/internal/api/ws"
	"tictactoe-arena/internal/config"
	"tictactoe-arena/internal/live"
	"tictactoe-arena/internal/room"
	"tictactoe-arena/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment directly")
	}
	cfg := config.Load()

	var st store.Store
	if cfg.DatabaseURL != "" {
		gs, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		st = gs
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		st = store.NewMemoryStore()
	}

	reg := live.NewRegistry()
	presence := live.NewPresence()
	members := live.NewMembership()
	states := live.NewRoomStates()

	mgr := room.NewManager(st, cfg, reg, presence, members, states)
	rec := room.NewRecovery(mgr)
	mm := room.NewMatchmaker(mgr)

	sched, err := room.StartSweeper(mgr, cfg)
	if err != nil {
		log.Fatalf("start sweeper: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	hub := ws.NewHub(reg, presence, st, mgr, mm, rec)
	r := httpapi.NewRouter(mgr, mm, st, hub)

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
