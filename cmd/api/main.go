// @title Cadence API
// @description API for habit-tracker app "Cadence"
// @BasePath /api/v1
// @schemes http
package main

import (
	"log"
	"time"

	"github.com/limbo/cadence/internal/api"
	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/internal/repository"
	"github.com/limbo/cadence/internal/service"
	"github.com/limbo/cadence/pkg/cleanup"
	"github.com/limbo/cadence/pkg/config"
	jwtservice "github.com/limbo/cadence/pkg/jwt_service"
)

func init() {
	service.InitValidator()
}

func main() {
	cfg := config.New()
	dbCfg := repository.PGCfg{
		Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
		Username: cfg.GetString("POSTGRES_USER"),
		Password: cfg.GetString("POSTGRES_PASSWORD"),
		DB:       cfg.GetString("POSTGRES_DB"),
	}
	loc := time.UTC
	if tz := cfg.GetString("HABITS_TIMEZONE"); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			log.Fatal("invalid HABITS_TIMEZONE: " + err.Error())
		}
	}

	usersRepo := repository.NewUsersRepo(&dbCfg)
	habitsRepo := repository.NewHabitsRepo(&dbCfg)
	rulesRepo := repository.NewRulesRepo(&dbCfg)
	completionsRepo := repository.NewCompletionsRepo(&dbCfg)
	cache := engine.NewActivityCache()

	userService := service.NewUserService(usersRepo)
	habitsService := service.NewHabitsService(habitsRepo, rulesRepo, cache)
	trackingService := service.NewTrackingService(habitsRepo, rulesRepo, completionsRepo, cache, loc)
	statsService := service.NewStatsService(habitsRepo, rulesRepo, completionsRepo, cache, loc)

	serv := api.New(&api.ServicesList{
		UserService:     userService,
		HabitsService:   habitsService,
		TrackingService: trackingService,
		StatsService:    statsService,
		JwtService:      jwtservice.New(cfg.GetString("JWT_SECRET")),
		Location:        loc,
	})
	err := serv.Run(cfg.GetString("API_ADDRESS"))
	if err != nil {
		log.Println("Server error: " + err.Error())
	}
	trackingService.Wait()
	cleanup.CleanUp()
}
